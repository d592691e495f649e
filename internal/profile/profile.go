package profile

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/wonny/investor-coach/internal/contracts"
)

//go:embed presets/*.yaml
var presets embed.FS

// Built-in profile names
const (
	Default = "default"
	LowVol  = "low_vol"
	Income  = "income"
	Custom  = "custom"
)

// Names returns the known profile names
func Names() []string {
	return []string{Default, LowVol, Income, Custom}
}

// Profile is the YAML schema of a weighting profile.
// Unknown keys are rejected; omitted fields take the defaults below.
type Profile struct {
	Name          string             `yaml:"name" json:"name"`
	Description   string             `yaml:"description,omitempty" json:"description,omitempty"`
	Weights       map[string]float64 `yaml:"weights" json:"weights"`
	Timeframe     string             `yaml:"timeframe" json:"timeframe" default:"3y"`
	Frequency     string             `yaml:"frequency" json:"frequency" default:"D"`
	R2AlignTarget string             `yaml:"r2_align_target" json:"r2_align_target" default:"high"`
}

// Settings is a validated, typed view of a Profile
type Settings struct {
	Name      string
	Weights   contracts.WeightConfig
	Timeframe contracts.Timeframe
	Frequency contracts.Frequency
	R2Target  contracts.R2Target
}

// Loader resolves profiles from a directory, falling back to the built-in presets
type Loader struct {
	dir string
}

// NewLoader creates a loader; dir may be empty (presets only)
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads <dir>/<name>.yaml when present, otherwise the embedded preset
func (l *Loader) Load(name string) (*Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Default
	}
	if !isKnown(name) {
		return nil, contracts.ValidationError{Field: "profile", Message: fmt.Sprintf("unknown profile %q (%s)", name, strings.Join(Names(), ", "))}
	}

	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, name+".yaml"))
		if err == nil {
			return Parse(data)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read profile %s: %w", name, err)
		}
	}

	data, err := presets.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", name, err)
	}
	return Parse(data)
}

func isKnown(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Parse decodes a profile document
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := defaults.Set(&p); err != nil {
		return nil, fmt.Errorf("profile defaults: %w", err)
	}
	if p.Weights == nil {
		p.Weights = map[string]float64{}
	}
	if _, err := p.Settings(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Settings validates the profile and returns its typed form
func (p *Profile) Settings() (Settings, error) {
	weights, err := contracts.NewWeightConfig(p.Weights)
	if err != nil {
		return Settings{}, err
	}
	tf, err := contracts.ParseTimeframe(p.Timeframe)
	if err != nil {
		return Settings{}, err
	}
	freq, err := contracts.ParseFrequency(p.Frequency)
	if err != nil {
		return Settings{}, err
	}
	target, err := contracts.ParseR2Target(p.R2AlignTarget)
	if err != nil {
		return Settings{}, err
	}
	return Settings{Name: p.Name, Weights: weights, Timeframe: tf, Frequency: freq, R2Target: target}, nil
}

// MergeOverrides returns a copy whose weights are overridden key by key.
// Override keys may use canonical metric names or legacy aliases.
func (p *Profile) MergeOverrides(overrides map[string]float64) (*Profile, error) {
	merged := *p
	merged.Weights = make(map[string]float64, len(p.Weights)+len(overrides))

	for k, v := range p.Weights {
		m, err := contracts.ParseMetric(k)
		if err != nil {
			return nil, err
		}
		merged.Weights[string(m)] = v
	}
	for k, v := range overrides {
		m, err := contracts.ParseMetric(k)
		if err != nil {
			return nil, err
		}
		merged.Weights[string(m)] = v
	}

	if _, err := merged.Settings(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ParseOverrides decodes a --weights-json document such as {"sharpe":0.5,"vol":0.5}
func ParseOverrides(raw string) (map[string]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out map[string]float64
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, contracts.ValidationError{Field: "weights_json", Message: err.Error()}
	}
	return out, nil
}

// Hash generates a SHA256 of the profile's canonical JSON.
// encoding/json sorts map keys, so equal profiles hash equally.
func Hash(p *Profile) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// WeightKeys returns the profile's weight keys sorted (display helper)
func (p *Profile) WeightKeys() []string {
	keys := make([]string, 0, len(p.Weights))
	for k := range p.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
