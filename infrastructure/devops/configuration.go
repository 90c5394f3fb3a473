package devops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"axiapac.com/timeclock/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// RemoteSettings is the fleet-wide overlay kept in SSM. Zero values leave the
// local setting untouched.
type RemoteSettings struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Replay struct {
		Retention     string `yaml:"retention"`
		MaxAttempts   *int   `yaml:"max_attempts"`
		ProbeInterval string `yaml:"probe_interval"`
	} `yaml:"replay"`
	Validation struct {
		MaxAccuracyM float64 `yaml:"max_accuracy_m"`
	} `yaml:"validation"`
}

type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

var (
	once     sync.Once
	settings *RemoteSettings
	loadErr  error
)

// LoadRemoteSettings fetches and parses the parameter once per process.
func LoadRemoteSettings(ctx context.Context, parameter string) (*RemoteSettings, error) {
	once.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			loadErr = fmt.Errorf("load aws config: %w", err)
			return
		}

		settings, loadErr = FetchRemoteSettings(ctx, ssm.NewFromConfig(cfg), parameter)
	})

	return settings, loadErr
}

func FetchRemoteSettings(ctx context.Context, client ParameterGetter, parameter string) (*RemoteSettings, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("get parameter: %s has no value", parameter)
	}

	return ParseRemoteSettings([]byte(*out.Parameter.Value))
}

func ParseRemoteSettings(data []byte) (*RemoteSettings, error) {
	var parsed RemoteSettings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return &parsed, nil
}

// Apply overlays the remote values onto cfg and re-validates it.
func (r *RemoteSettings) Apply(cfg *config.Config) error {
	if r.API.BaseURL != "" {
		cfg.API.BaseURL = r.API.BaseURL
	}
	if err := overlayDuration(&cfg.API.Timeout, r.API.Timeout, "api.timeout"); err != nil {
		return err
	}
	if err := overlayDuration(&cfg.Replay.Retention, r.Replay.Retention, "replay.retention"); err != nil {
		return err
	}
	if err := overlayDuration(&cfg.Replay.ProbeInterval, r.Replay.ProbeInterval, "replay.probe_interval"); err != nil {
		return err
	}
	if r.Replay.MaxAttempts != nil {
		cfg.Replay.MaxAttempts = *r.Replay.MaxAttempts
	}
	if r.Validation.MaxAccuracyM != 0 {
		cfg.Validation.MaxAccuracyM = r.Validation.MaxAccuracyM
	}
	return cfg.Validate()
}

func overlayDuration(dst *time.Duration, value, name string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("remote setting %s: %w", name, err)
	}
	*dst = d
	return nil
}
