package techstack

// Technology is an object entry of the lookup table: a canonical display name
// together with the keywords and icon associated with it.
type Technology struct {
	Name     string
	Keywords []string
	Icon     string
}

// technologies are the object entries. Their canonical names are matched
// case-insensitively unless an alias claims the same normalised key.
var technologies = []Technology{
	{Name: "JavaScript", Icon: "/react.svg", Keywords: []string{"javascript", "js", "react", "angular", "vue", "node", "express", "frontend", "backend", "fullstack", "web development"}},
	{Name: "Python", Icon: "/python.svg", Keywords: []string{"python", "django", "flask", "data science", "machine learning", "ai", "artificial intelligence", "backend"}},
	{Name: "Java", Icon: "/java.svg", Keywords: []string{"java", "spring", "android", "backend"}},
	{Name: "C++", Icon: "/cpp.svg", Keywords: []string{"c++", "cpp", "unreal engine", "game development"}},
	{Name: "C#", Icon: "/csharp.svg", Keywords: []string{"c#", "unity", ".net", "game development"}},
	{Name: "Go", Icon: "/go.svg", Keywords: []string{"go", "golang", "backend"}},
	{Name: "Ruby", Icon: "/ruby.svg", Keywords: []string{"ruby", "rails", "backend"}},
	{Name: "PHP", Icon: "/php.svg", Keywords: []string{"php", "laravel", "symfony", "wordpress"}},
	{Name: "Swift", Icon: "/swift.svg", Keywords: []string{"swift", "ios", "mobile development"}},
	{Name: "Kotlin", Icon: "/kotlin.svg", Keywords: []string{"kotlin", "android", "mobile development"}},
	{Name: "TypeScript", Icon: "/typescript.svg", Keywords: []string{"typescript", "ts", "angular", "react", "vue"}},
	{Name: "Design", Icon: "/design.svg", Keywords: []string{"design", "ui", "ux", "figma", "sketch", "photoshop", "illustrator"}},
	{Name: "DevOps", Icon: "/devops.svg", Keywords: []string{"devops", "aws", "azure", "gcp", "docker", "kubernetes", "ci/cd"}},
	{Name: "Marketing", Icon: "/tech.svg", Keywords: []string{"marketing", "seo", "sem", "social media", "content marketing", "digital marketing"}},
	{Name: "Content Creation", Icon: "/tech.svg", Keywords: []string{"content creation", "writing", "blogging", "video editing", "copywriting", "content strategy"}},
}

// aliases maps raw spellings to canonical identifiers.
var aliases = map[string]string{
	"next.js":           "nextjs",
	"nextjs":            "nextjs",
	"next":              "nextjs",
	"vue.js":            "vuejs",
	"vuejs":             "vuejs",
	"vue":               "vuejs",
	"express.js":        "express",
	"expressjs":         "express",
	"express":           "express",
	"node.js":           "nodejs",
	"nodejs":            "nodejs",
	"node":              "nodejs",
	"mongodb":           "mongodb",
	"mongo":             "mongodb",
	"mongoose":          "mongoose",
	"mysql":             "mysql",
	"postgresql":        "postgresql",
	"sqlite":            "sqlite",
	"firebase":          "firebase",
	"docker":            "docker",
	"kubernetes":        "kubernetes",
	"aws":               "aws",
	"azure":             "azure",
	"gcp":               "gcp",
	"digitalocean":      "digitalocean",
	"heroku":            "heroku",
	"photoshop":         "photoshop",
	"adobe photoshop":   "photoshop",
	"html5":             "html5",
	"html":              "html5",
	"css3":              "css3",
	"css":               "css3",
	"sass":              "sass",
	"scss":              "sass",
	"less":              "less",
	"tailwindcss":       "tailwindcss",
	"tailwind":          "tailwindcss",
	"bootstrap":         "bootstrap",
	"jquery":            "jquery",
	"typescript":        "typescript",
	"ts":                "typescript",
	"javascript":        "javascript",
	"js":                "javascript",
	"angular.js":        "angular",
	"angularjs":         "angular",
	"angular":           "angular",
	"ember.js":          "ember",
	"emberjs":           "ember",
	"ember":             "ember",
	"backbone.js":       "backbone",
	"backbonejs":        "backbone",
	"backbone":          "backbone",
	"nestjs":            "nestjs",
	"graphql":           "graphql",
	"graph ql":          "graphql",
	"apollo":            "apollo",
	"webpack":           "webpack",
	"babel":             "babel",
	"rollup.js":         "rollup",
	"rollupjs":          "rollup",
	"rollup":            "rollup",
	"parcel.js":         "parcel",
	"parceljs":          "parcel",
	"npm":               "npm",
	"yarn":              "yarn",
	"git":               "git",
	"github":            "github",
	"gitlab":            "gitlab",
	"bitbucket":         "bitbucket",
	"figma":             "figma",
	"prisma":            "prisma",
	"redux":             "redux",
	"flux":              "flux",
	"redis":             "redis",
	"selenium":          "selenium",
	"cypress":           "cypress",
	"jest":              "jest",
	"mocha":             "mocha",
	"chai":              "chai",
	"karma":             "karma",
	"vuex":              "vuex",
	"nuxt.js":           "nuxt",
	"nuxtjs":            "nuxt",
	"nuxt":              "nuxt",
	"strapi":            "strapi",
	"wordpress":         "wordpress",
	"contentful":        "contentful",
	"netlify":           "netlify",
	"vercel":            "vercel",
	"aws amplify":       "amplify",
	"content creation":  "content creation",
	"content":           "content creation",
	"marketing":         "marketing",
	"digital marketing": "marketing",
	"seo":               "marketing",
	"social media":      "marketing",
}

// Technologies returns a copy of the object entries of the table.
func Technologies() []Technology {
	out := make([]Technology, len(technologies))
	copy(out, technologies)
	return out
}
