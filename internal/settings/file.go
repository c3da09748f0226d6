package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads settings from a JSON or YAML file (chosen by extension).
// Fields missing from the file keep their Default() values.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	s := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings %s: %w", filepath.Base(path), err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes settings as JSON or YAML (chosen by extension).
func (s Settings) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Environment keys understood by ApplyEnv.
const (
	EnvProfile              = "PLATE_PROFILE"
	EnvRows                 = "PLATE_ROWS"
	EnvColumns              = "PLATE_COLUMNS"
	EnvVarianceThreshold    = "PLATE_VARIANCE_THRESHOLD"
	EnvLocalThresholdRadius = "PLATE_LOCAL_THRESHOLD_RADIUS"
	EnvMinParticleSize      = "PLATE_MIN_PARTICLE_SIZE"
	EnvWorkers              = "PLATE_WORKERS"
	EnvOverlay              = "PLATE_OVERLAY"
	EnvUserDefinedROI       = "PLATE_USER_ROI"
	EnvDarkColonies         = "PLATE_DARK_COLONIES"
)

// ApplyEnvFile overlays PLATE_* keys from a dotenv file without touching the
// process environment.
func ApplyEnvFile(s Settings, path string) (Settings, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return s, fmt.Errorf("failed to read env file: %w", err)
	}
	return ApplyEnv(s, env)
}

// ApplyEnv overlays PLATE_* keys from env onto s.
func ApplyEnv(s Settings, env map[string]string) (Settings, error) {
	ints := map[string]*int{
		EnvRows:                 &s.Rows,
		EnvColumns:              &s.Columns,
		EnvLocalThresholdRadius: &s.LocalThresholdRadius,
		EnvMinParticleSize:      &s.MinParticleSize,
		EnvWorkers:              &s.Workers,
	}
	for key, dst := range ints {
		v, ok := env[key]
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		EnvOverlay:        &s.SaveDiagnosticOverlay,
		EnvUserDefinedROI: &s.UserDefinedROI,
		EnvDarkColonies:   &s.DarkColonies,
	}
	for key, dst := range bools {
		v, ok := env[key]
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	if v := env[EnvVarianceThreshold]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvVarianceThreshold, err)
		}
		s.VarianceThreshold = f
	}
	if v := env[EnvProfile]; v != "" {
		s.Profile = v
	}
	return s, nil
}
