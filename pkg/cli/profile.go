package cli

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// profile is the YAML file given by --config. Values fill flags that were not set explicitly.
type profile struct {
	Backend   string `yaml:"backend"`
	DataDir   string `yaml:"data_dir"`
	Namespace string `yaml:"namespace"`

	Firestore struct {
		Project    string `yaml:"project"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"firestore"`

	GCS struct {
		Bucket string `yaml:"bucket"`
		Prefix string `yaml:"prefix"`
	} `yaml:"gcs"`

	Provider      string        `yaml:"provider"`
	TextEndpoint  string        `yaml:"text_endpoint"`
	ImageEndpoint string        `yaml:"image_endpoint"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	PolicyDir     string        `yaml:"policy_dir"`

	Gemini struct {
		Project  string `yaml:"project"`
		Location string `yaml:"location"`
	} `yaml:"gemini"`

	Image struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"image"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	return &p, nil
}

// apply copies profile values into cfg for every flag isSet reports as unset
func (p *profile) apply(cfg *config, isSet func(name string) bool) {
	setString := func(flag string, dst *string, v string) {
		if v != "" && !isSet(flag) {
			*dst = v
		}
	}

	setString("backend", &cfg.backend, p.Backend)
	setString("data-dir", &cfg.dataDir, p.DataDir)
	setString("namespace", &cfg.namespace, p.Namespace)
	setString("firestore-project", &cfg.firestoreProject, p.Firestore.Project)
	setString("firestore-database", &cfg.firestoreDatabase, p.Firestore.Database)
	setString("firestore-collection", &cfg.firestoreCollection, p.Firestore.Collection)
	setString("gcs-bucket", &cfg.gcsBucket, p.GCS.Bucket)
	setString("gcs-prefix", &cfg.gcsPrefix, p.GCS.Prefix)
	setString("provider", &cfg.provider, p.Provider)
	setString("text-endpoint", &cfg.textEndpoint, p.TextEndpoint)
	setString("image-endpoint", &cfg.imageEndpoint, p.ImageEndpoint)
	setString("model", &cfg.textModel, p.Model)
	setString("gemini-project", &cfg.geminiProject, p.Gemini.Project)
	setString("gemini-location", &cfg.geminiLocation, p.Gemini.Location)
	setString("policy-dir", &cfg.policyDir, p.PolicyDir)
	setString("log-level", &cfg.logLevel, p.Log.Level)
	setString("log-format", &cfg.logFormat, p.Log.Format)

	if p.Timeout > 0 && !isSet("timeout") {
		cfg.timeout = p.Timeout
	}
	if p.Image.Width > 0 && !isSet("width") {
		cfg.imageWidth = int64(p.Image.Width)
	}
	if p.Image.Height > 0 && !isSet("height") {
		cfg.imageHeight = int64(p.Image.Height)
	}
}
