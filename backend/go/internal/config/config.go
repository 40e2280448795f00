package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 知识库摄取失败策略。
const (
	FailurePolicyAbort = "abort" // 任一来源失败即终止启动
	FailurePolicySkip  = "skip"  // 记录警告并跳过失败的来源
)

// 网页正文抽取模式。
const (
	ExtractText     = "text"     // 去除标签后的纯文本
	ExtractMarkdown = "markdown" // 转换为 Markdown
)

// 切分长度的计量单位。
const (
	UnitCharacters = "characters" // 按 Unicode 字符计数
	UnitTokens     = "tokens"     // 按 cl100k_base token 计数
)

// DefaultKnowledgeSources 是默认的知识库地址列表。
var DefaultKnowledgeSources = []string{
	"https://www.techinterviewhandbook.org/software-engineering-interview-guide/",
	"https://www.techinterviewhandbook.org/resume/",
	"https://www.techinterviewhandbook.org/coding-interview-prep/",
	"https://www.techinterviewhandbook.org/coding-interview-rubrics/",
	"https://www.techinterviewhandbook.org/system-design/",
	"https://www.techinterviewhandbook.org/behavioral-interview/",
}

// DefaultDomainKeywords 是问题领域过滤使用的默认关键词。
var DefaultDomainKeywords = []string{"software", "coding", "interview"}

// IndexConfig 定义了 Milvus 集合中索引的配置。
type IndexConfig struct {
	IndexType  string                 `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW", "FLAT")
	MetricType string                 `yaml:"metricType"` // 相似度度量类型, 检索要求 "L2"
	Params     map[string]interface{} `yaml:"params"`     // 索引参数 (例如: {"nlist": 128})
}

// MilvusConfig 定义了 Milvus 数据库的连接和集合配置。
type MilvusConfig struct {
	Address        string      `yaml:"address"`        // Milvus 服务地址
	CollectionName string      `yaml:"collectionName"` // 集合名称
	Description    string      `yaml:"description"`    // 集合描述
	DropExisting   bool        `yaml:"dropExisting"`   // 启动时是否重建集合
	Index          IndexConfig `yaml:"index"`          // 索引配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点, 为空时不启用 s3:// 来源
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// DatabaseConfigs 包含所有外部存储的配置。
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"` // Milvus 向量库配置
	Redis  RedisConfig  `yaml:"redis"`  // Redis 缓存配置
	MinIO  MinIOConfig  `yaml:"minio"`  // MinIO 对象存储配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address          string `yaml:"address"`          // 监听地址
	RequestTimeout   string `yaml:"requestTimeout"`   // 单个请求的超时时间, 例如 "60s"
	ShutdownTimeout  string `yaml:"shutdownTimeout"`  // 优雅退出的等待时间
	ServeDuringBuild bool   `yaml:"serveDuringBuild"` // 为 true 时先监听再构建索引, 构建期间返回 503
}

// KnowledgeConfig 定义了知识库来源及摄取方式。
type KnowledgeConfig struct {
	Sources       []string `yaml:"sources"`       // 来源列表: URL、本地文件或 s3://bucket/key
	FailurePolicy string   `yaml:"failurePolicy"` // "abort" 或 "skip"
	Extract       string   `yaml:"extract"`       // 网页抽取模式: "text" 或 "markdown"
	FetchTimeout  string   `yaml:"fetchTimeout"`  // 单个来源的抓取超时
	Concurrency   int      `yaml:"concurrency"`   // 并发抓取数
	UserAgent     string   `yaml:"userAgent"`     // 抓取时使用的 User-Agent
	MaxBodyBytes  int64    `yaml:"maxBodyBytes"`  // 单个来源允许读取的最大字节数
}

// SplitterConfig 定义了文本切分参数。
type SplitterConfig struct {
	ChunkSize    int      `yaml:"chunkSize"`    // 每个片段的最大长度
	ChunkOverlap int      `yaml:"chunkOverlap"` // 相邻片段的重叠长度
	Separators   []string `yaml:"separators"`   // 递归切分使用的分隔符, 按优先级排列
	Unit         string   `yaml:"unit"`         // 长度单位: "characters" (默认) 或 "tokens"
}

// RetrievalConfig 定义了检索和相关性过滤的参数。
type RetrievalConfig struct {
	TopK           int      `yaml:"topK"`           // 返回的近邻数量
	DomainKeywords []string `yaml:"domainKeywords"` // 问题领域关键词
	VectorStore    string   `yaml:"vectorStore"`    // "flat" (内存精确检索) 或 "milvus"
}

// EmbeddingConfig 定义了 Embedding 提供商的配置。
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`  // "hashing", "openai", "ollama", "gemini", "huggingface"
	Model     string `yaml:"model"`     // 模型名称
	APIKey    string `yaml:"apiKey"`    // API 密钥
	BaseURL   string `yaml:"baseURL"`   // 服务基础 URL (可选)
	Dimension int    `yaml:"dimension"` // 向量维度, hashing 提供商使用
	BatchSize int    `yaml:"batchSize"` // 构建索引时每批发送的文本数
}

// LLMConfig 定义了文本生成提供商的配置。
type LLMConfig struct {
	Provider  string `yaml:"provider"`  // "openai", "ollama", "gemini", "huggingface"
	Model     string `yaml:"model"`     // 模型名称
	APIKey    string `yaml:"apiKey"`    // API 密钥
	BaseURL   string `yaml:"baseURL"`   // 服务基础 URL (可选)
	MaxTokens int    `yaml:"maxTokens"` // 最大生成 token 数, 0 表示使用提供商默认值
}

// CacheConfig 定义了问题向量缓存的配置。
type CacheConfig struct {
	Provider  string `yaml:"provider"`  // "none", "lru" 或 "redis"
	Capacity  int    `yaml:"capacity"`  // LRU 最大条目数
	TTL       string `yaml:"ttl"`       // 条目存活时间, 为空表示不过期
	KeyPrefix string `yaml:"keyPrefix"` // Redis 键前缀
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`  // 知识库配置
	Splitter   SplitterConfig   `yaml:"splitter"`   // 切分配置
	Retrieval  RetrievalConfig  `yaml:"retrieval"`  // 检索配置
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置
	Cache      CacheConfig      `yaml:"cache"`      // 缓存配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 外部存储配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 文件不存在时返回默认配置。加载后会依次填充默认值、应用环境变量并校验。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	yamlFile, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// 没有配置文件时完全依赖默认值和环境变量。
	case err != nil:
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	default:
		if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
		}
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回一份完全由默认值构成的配置。
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "prepbot"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}

	if c.Server.Address == "" {
		c.Server.Address = ":5001"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "60s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	if len(c.Knowledge.Sources) == 0 {
		c.Knowledge.Sources = append([]string(nil), DefaultKnowledgeSources...)
	}
	if c.Knowledge.FailurePolicy == "" {
		c.Knowledge.FailurePolicy = FailurePolicyAbort
	}
	if c.Knowledge.Extract == "" {
		c.Knowledge.Extract = ExtractText
	}
	if c.Knowledge.FetchTimeout == "" {
		c.Knowledge.FetchTimeout = "30s"
	}
	if c.Knowledge.Concurrency <= 0 {
		c.Knowledge.Concurrency = 4
	}
	if c.Knowledge.UserAgent == "" {
		c.Knowledge.UserAgent = "prepbot/1.0"
	}
	if c.Knowledge.MaxBodyBytes <= 0 {
		c.Knowledge.MaxBodyBytes = 10 << 20
	}

	if c.Splitter.ChunkSize <= 0 {
		c.Splitter.ChunkSize = 250
	}
	if len(c.Splitter.Separators) == 0 {
		c.Splitter.Separators = []string{"\n\n", "\n", " ", ""}
	}
	if c.Splitter.Unit == "" {
		c.Splitter.Unit = UnitCharacters
	}

	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 4
	}
	if len(c.Retrieval.DomainKeywords) == 0 {
		c.Retrieval.DomainKeywords = append([]string(nil), DefaultDomainKeywords...)
	}
	if c.Retrieval.VectorStore == "" {
		c.Retrieval.VectorStore = "flat"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hashing"
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = 384
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}

	if c.Cache.Provider == "" {
		c.Cache.Provider = "lru"
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 1024
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "prepbot:qemb:"
	}

	if c.Databases.Milvus.CollectionName == "" {
		c.Databases.Milvus.CollectionName = "prepbot_segments"
	}
	if c.Databases.Milvus.Index.IndexType == "" {
		c.Databases.Milvus.Index.IndexType = "FLAT"
	}
	if c.Databases.Milvus.Index.MetricType == "" {
		c.Databases.Milvus.Index.MetricType = "L2"
	}

	cb := &c.Middleware.CircuitBreaker
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold == 0 {
		cb.SuccessThreshold = 1
	}
	if cb.Timeout == "" {
		cb.Timeout = "30s"
	}
}

// ApplyEnv 使用环境变量补全未在文件中配置的密钥。
// getenv 通常传入 os.Getenv, 测试时可替换。
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKey(c.LLM.Provider, getenv)
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = providerKey(c.Embedding.Provider, getenv)
	}
	if v := getenv("PREPBOT_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := getenv("PREPBOT_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if c.Databases.Redis.Password == "" {
		c.Databases.Redis.Password = getenv("REDIS_PASSWORD")
	}
	if c.Databases.MinIO.AccessKey == "" {
		c.Databases.MinIO.AccessKey = getenv("MINIO_ACCESS_KEY")
	}
	if c.Databases.MinIO.SecretKey == "" {
		c.Databases.MinIO.SecretKey = getenv("MINIO_SECRET_KEY")
	}
}

// providerKey 返回提供商对应环境变量中的 API 密钥。
func providerKey(provider string, getenv func(string) string) string {
	var names []string
	switch provider {
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "gemini":
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "huggingface":
		names = []string{"HUGGINGFACE_API_KEY", "HF_TOKEN"}
	}
	for _, name := range names {
		if v := getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Validate 检查配置中的取值范围和时间格式。
func (c *AppConfig) Validate() error {
	switch c.Knowledge.FailurePolicy {
	case FailurePolicyAbort, FailurePolicySkip:
	default:
		return fmt.Errorf("未知的 failurePolicy: %q", c.Knowledge.FailurePolicy)
	}
	switch c.Knowledge.Extract {
	case ExtractText, ExtractMarkdown:
	default:
		return fmt.Errorf("未知的 extract 模式: %q", c.Knowledge.Extract)
	}
	switch c.Splitter.Unit {
	case UnitCharacters, UnitTokens:
	default:
		return fmt.Errorf("未知的切分单位: %q", c.Splitter.Unit)
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("chunkOverlap (%d) 必须在 [0, chunkSize=%d) 范围内", c.Splitter.ChunkOverlap, c.Splitter.ChunkSize)
	}
	switch c.Retrieval.VectorStore {
	case "flat", "milvus":
	default:
		return fmt.Errorf("未知的 vectorStore: %q", c.Retrieval.VectorStore)
	}
	switch c.Cache.Provider {
	case "none", "lru", "redis":
	default:
		return fmt.Errorf("未知的缓存提供商: %q", c.Cache.Provider)
	}

	durations := map[string]string{
		"server.requestTimeout":             c.Server.RequestTimeout,
		"server.shutdownTimeout":            c.Server.ShutdownTimeout,
		"knowledge.fetchTimeout":            c.Knowledge.FetchTimeout,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
		"cache.ttl":                         c.Cache.TTL,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s 不是合法的时间间隔: %w", name, err)
		}
	}
	return nil
}

// Duration 解析时间字符串, 为空或非法时返回 fallback。
// 调用前配置应已通过 Validate。
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
