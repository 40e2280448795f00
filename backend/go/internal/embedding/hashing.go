package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingModel 用特征哈希把词和相邻词对映射到固定维度的向量。
// 结果经过 L2 归一化, 相同文本总是得到相同向量。
type HashingModel struct {
	dim int
}

// NewHashingModel 创建一个本地哈希 Embedding 模型。
func NewHashingModel(dim int) (*HashingModel, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing dimension must be positive, got %d", dim)
	}
	return &HashingModel{dim: dim}, nil
}

// EmbedBatch 为一批文本生成嵌入向量。
func (m *HashingModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *HashingModel) vector(text string) []float32 {
	vec := make([]float32, m.dim)
	terms := tokenize(text)
	for i, term := range terms {
		m.add(vec, term, 1)
		if i > 0 {
			m.add(vec, terms[i-1]+" "+term, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// add 累加一个特征。最高位决定符号, 降低哈希碰撞带来的偏差。
func (m *HashingModel) add(vec []float32, feature string, weight float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	if sum&0x80000000 != 0 {
		weight = -weight
	}
	vec[int(sum&0x7fffffff)%m.dim] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
