package app

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/MrWong99/prepwise/internal/config"
)

// newFirebaseApp creates a Firebase app from cfg. Inline credentials win over
// a credentials file; with neither, Application Default Credentials are used.
func newFirebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	return firebase.NewApp(ctx, fbCfg, opts...)
}
