package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HuggingFace 是一个用于 Hugging Face Inference API 的 LLM 客户端。
type HuggingFace struct {
	client  *http.Client // HTTP 客户端实例。
	model   string       // 要使用的模型名称。
	apiKey  string       // Hugging Face API 密钥。
	baseURL string       // Hugging Face Inference API 的基准 URL。
}

// NewHuggingFace 创建一个新的 HuggingFace 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	apiKey: Hugging Face API 密钥。
//	baseURL: Hugging Face Inference API 的基准 URL。如果为空，则默认为 "https://api-inference.huggingface.co/models/"。
func NewHuggingFace(model, apiKey, baseURL string) (*HuggingFace, error) {
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/models/"
	}
	if model == "" {
		return nil, fmt.Errorf("huggingface requires a model name")
	}
	return &HuggingFace{
		client:  &http.Client{Timeout: 120 * time.Second},
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Complete 使用 Hugging Face Inference API 生成内容。
func (h *HuggingFace) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	jsonReq, err := json.Marshal(h.toHuggingFaceRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.model, bytes.NewReader(jsonReq))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("huggingface returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var hfResp []hfGeneration
	if err := json.NewDecoder(resp.Body).Decode(&hfResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(hfResp) == 0 {
		return nil, fmt.Errorf("no generated text returned")
	}
	return &CompletionResponse{Text: hfResp[0].GeneratedText, Model: h.model}, nil
}

// toHuggingFaceRequest 将内部请求转换为 text-generation 任务的载荷。
// 温度为 0 时关闭采样, 使用贪心解码。
func (h *HuggingFace) toHuggingFaceRequest(req *CompletionRequest) map[string]interface{} {
	params := map[string]interface{}{
		"return_full_text": false,
	}
	if req.Temperature > 0 {
		params["do_sample"] = true
		params["temperature"] = req.Temperature
	} else {
		params["do_sample"] = false
	}
	if req.MaxTokens > 0 {
		params["max_new_tokens"] = req.MaxTokens
	}

	return map[string]interface{}{
		"inputs":     req.Prompt,
		"parameters": params,
		"options":    map[string]bool{"wait_for_model": true},
	}
}
