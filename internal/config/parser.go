// Package config provides configuration parsing and management for the Oba LDAP server.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Parser errors.
var (
	ErrInvalidYAML       = errors.New("invalid YAML format")
	ErrInvalidDuration   = errors.New("invalid duration format")
	ErrInvalidNumber     = errors.New("invalid number format")
	ErrFileNotFound      = errors.New("configuration file not found")
	ErrMissingConfigFile = errors.New("config file path is required")
	ErrMissingOnChange   = errors.New("onChange callback is required")
)

// LoadConfig loads configuration from a file path.
// It reads the file, substitutes environment variables, parses YAML,
// and applies defaults for missing values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
// It substitutes environment variables and applies defaults for missing values.
func ParseConfig(data []byte) (*Config, error) {
	data = substituteEnvVars(data)

	config := DefaultConfig()

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, ErrInvalidYAML.Error())
	}
	if raw == nil {
		return config, nil
	}

	if err := applyConfig(raw, config); err != nil {
		return nil, err
	}

	return config, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment variable values.
func substituteEnvVars(data []byte) []byte {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllFunc(data, func(match []byte) []byte {
		content := string(match[2 : len(match)-1])

		if idx := strings.Index(content, ":-"); idx != -1 {
			varName := content[:idx]
			defaultVal := content[idx+2:]
			if val := os.Getenv(varName); val != "" {
				return []byte(val)
			}
			return []byte(defaultVal)
		}

		return []byte(os.Getenv(content))
	})
}

// yamlMap is the shape yaml.v2 produces for nested mapping nodes.
type yamlMap = map[interface{}]interface{}

func section(raw map[string]interface{}, key string) (yamlMap, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	m, ok := v.(yamlMap)
	return m, ok
}

func subsection(m yamlMap, key string) (yamlMap, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	sub, ok := v.(yamlMap)
	return sub, ok
}

func getString(m yamlMap, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

func getInt(m yamlMap, key string) (int, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	default:
		return 0, true, ErrInvalidNumber
	}
}

func getBool(m yamlMap, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return parseBool(b)
	}
	return false
}

func getDuration(m yamlMap, key string) (time.Duration, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch d := v.(type) {
	case string:
		if d == "" {
			return 0, false, nil
		}
		dur, err := parseDuration(d)
		return dur, true, err
	case int:
		return time.Duration(d) * time.Second, true, nil
	case int64:
		return time.Duration(d) * time.Second, true, nil
	}
	return 0, true, ErrInvalidDuration
}

func getStringSlice(m yamlMap, key string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func getMapSlice(m yamlMap, key string) []yamlMap {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]yamlMap, 0, len(arr))
	for _, item := range arr {
		if mm, ok := item.(yamlMap); ok {
			result = append(result, mm)
		}
	}
	return result
}

// applyConfig applies a parsed YAML document onto the config struct.
func applyConfig(raw map[string]interface{}, config *Config) error {
	if v, ok := raw["aclFile"].(string); ok && v != "" {
		config.ACLFile = v
	}
	if m, ok := section(raw, "server"); ok {
		if err := applyServerConfig(m, &config.Server); err != nil {
			return err
		}
	}
	if m, ok := section(raw, "directory"); ok {
		applyDirectoryConfig(m, &config.Directory)
	}
	if m, ok := section(raw, "storage"); ok {
		if err := applyStorageConfig(m, &config.Storage); err != nil {
			return err
		}
	}
	if m, ok := section(raw, "logging"); ok {
		applyLogConfig(m, &config.Logging)
	}
	if m, ok := section(raw, "security"); ok {
		if err := applySecurityConfig(m, &config.Security); err != nil {
			return err
		}
	}
	if m, ok := section(raw, "acl"); ok {
		applyACLConfig(m, &config.ACL)
	}
	return nil
}

func applyServerConfig(m yamlMap, config *ServerConfig) error {
	if v, ok := getString(m, "address"); ok && v != "" {
		config.Address = v
	}
	if v, ok := getString(m, "tlsAddress"); ok && v != "" {
		config.TLSAddress = v
	}
	if v, ok := getString(m, "tlsCert"); ok && v != "" {
		config.TLSCert = v
	}
	if v, ok := getString(m, "tlsKey"); ok && v != "" {
		config.TLSKey = v
	}
	if v, ok, err := getInt(m, "maxConnections"); err != nil {
		return err
	} else if ok {
		config.MaxConnections = v
	}
	if v, ok, err := getDuration(m, "readTimeout"); err != nil {
		return err
	} else if ok {
		config.ReadTimeout = v
	}
	if v, ok, err := getDuration(m, "writeTimeout"); err != nil {
		return err
	} else if ok {
		config.WriteTimeout = v
	}
	if v, ok := getString(m, "pidFile"); ok && v != "" {
		config.PIDFile = v
	}
	return nil
}

func applyDirectoryConfig(m yamlMap, config *DirectoryConfig) {
	if v, ok := getString(m, "baseDN"); ok && v != "" {
		config.BaseDN = v
	}
	if v, ok := getString(m, "rootDN"); ok && v != "" {
		config.RootDN = v
	}
	if v, ok := getString(m, "rootPassword"); ok && v != "" {
		config.RootPassword = v
	}
}

func applyStorageConfig(m yamlMap, config *StorageConfig) error {
	if v, ok := getString(m, "dataDir"); ok && v != "" {
		config.DataDir = v
	}
	if v, ok := getString(m, "walDir"); ok && v != "" {
		config.WALDir = v
	}
	if v, ok, err := getInt(m, "pageSize"); err != nil {
		return err
	} else if ok {
		config.PageSize = v
	}
	if v, ok := getString(m, "bufferPoolSize"); ok && v != "" {
		config.BufferPoolSize = v
	}
	if v, ok, err := getDuration(m, "checkpointInterval"); err != nil {
		return err
	} else if ok {
		config.CheckpointInterval = v
	}
	return nil
}

func applyLogConfig(m yamlMap, config *LogConfig) {
	if v, ok := getString(m, "level"); ok && v != "" {
		config.Level = v
	}
	if v, ok := getString(m, "format"); ok && v != "" {
		config.Format = v
	}
	if v, ok := getString(m, "output"); ok && v != "" {
		config.Output = v
	}
}

func applySecurityConfig(m yamlMap, config *SecurityConfig) error {
	if sub, ok := subsection(m, "passwordPolicy"); ok {
		if err := applyPasswordPolicyConfig(sub, &config.PasswordPolicy); err != nil {
			return err
		}
	}
	if sub, ok := subsection(m, "rateLimit"); ok {
		if err := applyRateLimitConfig(sub, &config.RateLimit); err != nil {
			return err
		}
	}
	return nil
}

func applyPasswordPolicyConfig(m yamlMap, config *PasswordPolicyConfig) error {
	if _, ok := m["enabled"]; ok {
		config.Enabled = getBool(m, "enabled")
	}
	if v, ok, err := getInt(m, "minLength"); err != nil {
		return err
	} else if ok {
		config.MinLength = v
	}
	if _, ok := m["requireUppercase"]; ok {
		config.RequireUppercase = getBool(m, "requireUppercase")
	}
	if _, ok := m["requireLowercase"]; ok {
		config.RequireLowercase = getBool(m, "requireLowercase")
	}
	if _, ok := m["requireDigit"]; ok {
		config.RequireDigit = getBool(m, "requireDigit")
	}
	if _, ok := m["requireSpecial"]; ok {
		config.RequireSpecial = getBool(m, "requireSpecial")
	}
	if v, ok, err := getDuration(m, "maxAge"); err != nil {
		return err
	} else if ok {
		config.MaxAge = v
	}
	if v, ok, err := getInt(m, "historyCount"); err != nil {
		return err
	} else if ok {
		config.HistoryCount = v
	}
	return nil
}

func applyRateLimitConfig(m yamlMap, config *RateLimitConfig) error {
	if _, ok := m["enabled"]; ok {
		config.Enabled = getBool(m, "enabled")
	}
	if v, ok, err := getInt(m, "maxAttempts"); err != nil {
		return err
	} else if ok {
		config.MaxAttempts = v
	}
	if v, ok, err := getDuration(m, "lockoutDuration"); err != nil {
		return err
	} else if ok {
		config.LockoutDuration = v
	}
	return nil
}

func applyACLConfig(m yamlMap, config *ACLConfig) {
	if v, ok := getString(m, "defaultPolicy"); ok && v != "" {
		config.DefaultPolicy = v
	}
	if ruleMaps := getMapSlice(m, "rules"); ruleMaps != nil {
		config.Rules = parseACLRules(ruleMaps)
	}
}

func parseACLRules(ruleMaps []yamlMap) []ACLRuleConfig {
	rules := make([]ACLRuleConfig, 0, len(ruleMaps))
	for _, rm := range ruleMaps {
		rule := ACLRuleConfig{}
		if v, ok := getString(rm, "target"); ok {
			rule.Target = v
		}
		if v, ok := getString(rm, "subject"); ok {
			rule.Subject = v
		}
		rule.Rights = getStringSlice(rm, "rights")
		rule.Attributes = getStringSlice(rm, "attributes")
		rules = append(rules, rule)
	}
	return rules
}

// parseDuration parses a duration string supporting formats like "30s", "5m", "1h", "90d".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	// Check for day suffix (not supported by time.ParseDuration)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, ErrInvalidDuration
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, ErrInvalidDuration
	}
	return dur, nil
}

// parseBool parses a boolean string.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
