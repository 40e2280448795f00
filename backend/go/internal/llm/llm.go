package llm

import (
	"context"
	"fmt"

	"PrepBot/backend/go/internal/config"
)

// CompletionRequest 是一次无状态的文本生成请求。
type CompletionRequest struct {
	Prompt      string  // 完整提示词
	Temperature float32 // 采样温度, 0 表示尽量确定性输出
	MaxTokens   int     // 最大生成 token 数, 0 表示使用提供商默认值
}

// CompletionResponse 是文本生成的结果。
type CompletionResponse struct {
	Text       string // 生成的文本
	Model      string // 实际使用的模型
	ResponseID string // 提供商返回的请求 ID (可能为空)
}

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 每次调用互相独立, 不保留会话历史。
type LLM interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL)
	case "gemini":
		return NewGemini(ctx, cfg.Model, cfg.APIKey)
	case "huggingface":
		return NewHuggingFace(cfg.Model, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
