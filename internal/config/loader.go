package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr           = ":8080"
	DefaultShutdownTimeout      = 15 * time.Second
	DefaultInterviewsCollection = "interviews"
	DefaultFeedbackPath         = "feedback.jsonl"
	DefaultFeedbackCollection   = "feedback"
	DefaultHomeRedirectDelay    = 2 * time.Second
)

// ValidProviderNames lists known provider names per kind. [Validate] warns
// about names not listed here.
var ValidProviderNames = map[string][]string{
	"llm":       {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"transport": {"websocket"},
}

// envRef matches ${NAME} references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("config: load env %q: %w", f, err)
		}
		slog.Debug("loaded environment file", "path", f)
	}
	return nil
}

// Load reads the YAML file at path and returns the validated [Config].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, expands ${VAR} references from the
// environment, applies defaults and validates the result. Unknown keys are
// rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	raw = ExpandEnv(raw)

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandEnv replaces every ${NAME} in b with the value of the environment
// variable NAME. Unset variables expand to the empty string. A bare $ is
// left alone.
func ExpandEnv(b []byte) []byte {
	return envRef.ReplaceAllFunc(b, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageMemory
	}
	if cfg.Storage.InterviewsCollection == "" {
		cfg.Storage.InterviewsCollection = DefaultInterviewsCollection
	}
	if cfg.Interview.HomeRedirectDelay == 0 {
		cfg.Interview.HomeRedirectDelay = DefaultHomeRedirectDelay
	}
	if cfg.Feedback.Backend == "" {
		cfg.Feedback.Backend = FeedbackFile
	}
	if cfg.Feedback.Path == "" {
		cfg.Feedback.Path = DefaultFeedbackPath
	}
	if cfg.Feedback.Collection == "" {
		cfg.Feedback.Collection = DefaultFeedbackCollection
	}
}

// Validate checks that cfg is coherent. It returns a joined error listing
// every failure and logs warnings for settings that are legal but likely
// mistakes.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %v must not be negative", cfg.Server.ShutdownTimeout))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}
	if cfg.Providers.LLM.Name == "" {
		if len(cfg.Providers.LLMFallbacks) > 0 {
			errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
		} else {
			slog.Warn("providers.llm is not configured; interview generation is disabled")
		}
	}
	validateProviderName("transport", cfg.Providers.Transport.Name)
	if cfg.Providers.Transport.Name == "" {
		slog.Warn("providers.transport is not configured; calls cannot be started")
	}

	switch {
	case !cfg.Storage.Backend.IsValid():
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, postgres, firestore", cfg.Storage.Backend))
	case cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "":
		errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
	case cfg.Storage.Backend == StorageMemory:
		slog.Warn("storage.backend is memory; interviews are lost on restart")
	}

	if cfg.Firebase.CredentialsFile != "" && cfg.Firebase.CredentialsJSON != "" {
		errs = append(errs, errors.New("firebase.credentials_file and firebase.credentials_json are mutually exclusive"))
	}
	if cfg.Storage.Backend == StorageFirestore && !cfg.Firebase.Enabled() {
		slog.Warn("storage.backend is firestore but the firebase section is empty; using application default credentials")
	}

	errs = append(errs, validateInterview(&cfg.Interview)...)

	if !cfg.Feedback.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("feedback.backend %q is invalid; valid values: file, store", cfg.Feedback.Backend))
	}

	return errors.Join(errs...)
}

func validateInterview(ic *InterviewConfig) []error {
	var errs []error
	if ic.HomeRedirectDelay < 0 {
		errs = append(errs, fmt.Errorf("interview.home_redirect_delay %v must not be negative", ic.HomeRedirectDelay))
	}
	if ic.PhoneticThreshold < 0 || ic.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("interview.phonetic_threshold %.2f is out of range [0, 1]", ic.PhoneticThreshold))
	}
	if ic.PhoneticThreshold > 0 && !ic.PhoneticTechMatching {
		slog.Warn("interview.phonetic_threshold is set but phonetic_tech_matching is off")
	}
	for i, c := range ic.CoverImages {
		if c == "" {
			errs = append(errs, fmt.Errorf("interview.cover_images[%d] is empty", i))
		}
	}
	if ic.WorkflowID == "" {
		slog.Warn("interview.workflow_id is empty; generate-mode calls will fail to start")
	}
	if v := ic.Assistant; v != nil && v.Voice != nil && v.Voice.Speed != 0 && (v.Voice.Speed < 0.5 || v.Voice.Speed > 2.0) {
		errs = append(errs, fmt.Errorf("interview.assistant.voice.speed %.2f is out of range [0.5, 2.0]", v.Voice.Speed))
	}
	return errs
}

// validateProviderName warns when name is set but not a known provider.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or a third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
