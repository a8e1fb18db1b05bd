package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingBaseURL 表示需要访问 ABS 但没有配置服务地址。
	ErrCodeMissingBaseURL = "config_missing_base_url"
	// ErrCodeMissingToken 表示需要访问 ABS 但没有配置 API token。
	ErrCodeMissingToken = "config_missing_token"
)

const (
	// FileName 是 cwd 下默认发现的配置文件名。
	FileName = "absauthor.toml"

	DefaultLitresBaseURL = "https://www.litres.ru"
	DefaultStateDir      = ".absauthor"
	// DefaultConcurrency 是并发的内置默认值；ABS 是单机服务，保持保守。
	DefaultConcurrency = 2
	MaxConcurrency     = 16

	EnvBaseURL = "ABS_BASE_URL"
	EnvToken   = "ABS_TOKEN"
)

// DefaultLanguages 是 Wikipedia 查找的默认语言顺序。
var DefaultLanguages = []string{"ru", "en"}

// CLIArgs 保留“是否显式指定”的信息，保证覆盖优先级可实现：
// 例如 --apply=false 必须能覆盖 run.apply=true。
type CLIArgs struct {
	ConfigPath string

	BaseURL    string
	BaseURLSet bool

	Token    string
	TokenSet bool

	Apply    bool
	ApplySet bool

	Concurrency    int
	ConcurrencySet bool

	NoCache bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 absauthor.toml 的解析结构。
type FileConfig struct {
	ABS struct {
		BaseURL string `toml:"base_url"`
		Token   string `toml:"token"`
	} `toml:"abs"`
	Litres struct {
		BaseURL string `toml:"base_url"`
	} `toml:"litres"`
	Wikipedia struct {
		Languages []string `toml:"languages"`
	} `toml:"wikipedia"`
	Run struct {
		Apply       *bool  `toml:"apply"`
		Concurrency int    `toml:"concurrency"`
		StateDir    string `toml:"state_dir"`
		Cache       *bool  `toml:"cache"`
	} `toml:"run"`
	Net struct {
		ProxyURL string `toml:"proxy_url"`
	} `toml:"net"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	ABSBaseURL string
	ABSToken   string

	LitresBaseURL string
	Languages     []string

	Apply       bool
	Concurrency int
	StateDir    string
	Cache       bool

	ProxyURL string

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。配置错误是致命的，不做重试。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingBaseURL:
		return fmt.Sprintf("%s：未配置 ABS 地址（abs.base_url 或 %s）", e.Code, EnvBaseURL)
	case ErrCodeMissingToken:
		return fmt.Sprintf("%s：未配置 ABS API token（abs.token 或 %s）", e.Code, EnvToken)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadDotEnv 加载 <dir>/.env 到进程环境；已存在的环境变量不被覆盖，文件不存在不算错误。
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则尝试 <cwd>/absauthor.toml（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量（ABS_BASE_URL/ABS_TOKEN）> 配置文件 > 默认值。
// getenv 为 nil 时使用 os.Getenv。
func LoadEffective(cwd string, cli CLIArgs, getenv func(string) string) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}
	if !exists {
		cfgPath = ""
	}

	return merge(cwdAbs, cli, fc, cfgPath, getenv)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string, getenv func(string) string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	baseURL := pick(cli.BaseURL, cli.BaseURLSet, getenv(EnvBaseURL), fc.ABS.BaseURL)
	baseURL = NormalizeBaseURL(baseURL)
	if baseURL != "" {
		if err := validateHTTPURL(baseURL); err != nil {
			return EffectiveConfig{}, invalid("abs.base_url %v", err)
		}
	}
	token := strings.TrimSpace(pick(cli.Token, cli.TokenSet, getenv(EnvToken), fc.ABS.Token))

	litresBase := NormalizeBaseURL(fc.Litres.BaseURL)
	if litresBase == "" {
		litresBase = DefaultLitresBaseURL
	}
	if err := validateHTTPURL(litresBase); err != nil {
		return EffectiveConfig{}, invalid("litres.base_url %v", err)
	}

	langs, err := normalizeLanguages(fc.Wikipedia.Languages)
	if err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Run.Apply != nil {
		apply = *fc.Run.Apply
	}

	concurrency := fc.Run.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 超出 [1, MaxConcurrency] 截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	stateDir := strings.TrimSpace(fc.Run.StateDir)
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	// 相对 state_dir 以配置文件所在目录为基准；没有配置文件时以 cwd 为基准。
	base := cwdAbs
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}
	stateDir = absCleanFrom(base, stateDir)

	useCache := true
	if fc.Run.Cache != nil {
		useCache = *fc.Run.Cache
	}
	if cli.NoCache {
		useCache = false
	}

	proxyURL := strings.TrimSpace(fc.Net.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("net.proxy_url 无效：%q", proxyURL)
		}
	}

	level := strings.ToLower(strings.TrimSpace(fc.Log.Level))
	if cli.LogLevelSet {
		level = strings.ToLower(strings.TrimSpace(cli.LogLevel))
	}
	if level == "" {
		level = "info"
	}
	switch level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return EffectiveConfig{}, invalid("log.level 只能是 debug/info/warn/error，实际是 %q", level)
	}
	format := strings.ToLower(strings.TrimSpace(fc.Log.Format))
	if format == "" {
		format = "console"
	}
	switch format {
	case "console", "text", "json":
	default:
		return EffectiveConfig{}, invalid("log.format 只能是 console/json，实际是 %q", format)
	}

	return EffectiveConfig{
		ConfigPath:    cfgPath,
		ABSBaseURL:    baseURL,
		ABSToken:      token,
		LitresBaseURL: litresBase,
		Languages:     langs,
		Apply:         apply,
		Concurrency:   concurrency,
		StateDir:      stateDir,
		Cache:         useCache,
		ProxyURL:      proxyURL,
		LogLevel:      level,
		LogFormat:     format,
	}, nil
}

// RequireABS 检查访问 ABS 所需的地址与 token；只有真正访问 ABS 的命令才调用。
func (c EffectiveConfig) RequireABS() error {
	if c.ABSBaseURL == "" {
		return &Error{Code: ErrCodeMissingBaseURL, Path: c.ConfigPath}
	}
	if c.ABSToken == "" {
		return &Error{Code: ErrCodeMissingToken, Path: c.ConfigPath}
	}
	return nil
}

// NormalizeBaseURL 去首尾空白与末尾的 /。
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

func pick(cliValue string, cliSet bool, envValue, fileValue string) string {
	if cliSet {
		return cliValue
	}
	if strings.TrimSpace(envValue) != "" {
		return envValue
	}
	return fileValue
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("无效：%q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", raw)
	}
	return nil
}

func normalizeLanguages(in []string) ([]string, error) {
	if len(in) == 0 {
		return append([]string(nil), DefaultLanguages...), nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		for _, r := range l {
			if (r < 'a' || r > 'z') && r != '-' {
				return nil, fmt.Errorf("wikipedia.languages 含非法语言代码：%q", l)
			}
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("wikipedia.languages 不能为空")
	}
	return out, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件；未知字段视为无效（多半是拼写错误）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
