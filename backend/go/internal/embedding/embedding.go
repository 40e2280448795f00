package embedding

import (
	"context"
	"fmt"

	"PrepBot/backend/go/internal/config"
)

// Embedding 定义了所有 embedding 模型需要实现的接口。
type Embedding interface {
	// EmbedBatch 为一批文本生成嵌入向量, 返回顺序与输入一致。
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelType 是一个枚举类型，用于表示不同的模型厂商。
type ModelType string

const (
	Hashing     ModelType = "hashing"     // 本地特征哈希, 无需外部服务。
	OpenAI      ModelType = "openai"      // OpenAI 模型类型。
	Google      ModelType = "gemini"      // Google 模型类型。
	Ollama      ModelType = "ollama"      // Ollama 模型类型。
	HuggingFace ModelType = "huggingface" // HuggingFace 模型类型。
)

// NewEmdModel 根据配置创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	cfg: Embedding 配置, 包含提供商、模型、API 密钥和基础 URL。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(cfg config.EmbeddingConfig) (Embedding, error) {
	switch ModelType(cfg.Provider) {
	case Hashing:
		return NewHashingModel(cfg.Dimension)
	case Google:
		return NewGoogleModel(cfg.APIKey, cfg.Model)
	case OpenAI:
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case HuggingFace:
		return NewHuggingFaceModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case Ollama:
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider) // 如果提供商不支持，返回错误。
	}
}

// checkCount 校验返回的向量数量与输入一致。
func checkCount(got, want int) error {
	if got != want {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", got, want)
	}
	return nil
}
