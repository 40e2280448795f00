package milvus

import (
	"context"
	"fmt"
	"sync"

	"PrepBot/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		if cfg.Address == "" {
			initErr = fmt.Errorf("未配置 Milvus 地址")
			return
		}
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// EnsureCollection 确保集合存在、索引已建立并已加载到内存。
// 配置了 DropExisting 时会先删除同名集合, 保证索引内容只来自本次启动的构建。
//
// 参数:
//
//	ctx: 上下文。
//	schema: 集合 Schema, 名称会被覆盖为配置中的集合名。
//	vectorField: 需要建立向量索引的字段名。
func (c *MilvusClient) EnsureCollection(ctx context.Context, schema *entity.Schema, vectorField string) error {
	collName := c.Config.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if exists && c.Config.DropExisting {
		if err := c.Client.DropCollection(ctx, collName); err != nil {
			return fmt.Errorf("删除旧集合 '%s' 失败: %w", collName, err)
		}
		exists = false
	}

	if !exists {
		schema = schema.WithName(collName).WithDescription(c.Config.Description)
		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := c.buildIndexFromConfig()
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, vectorField, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", vectorField, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// FlushCollection 手动触发一次刷新操作，使插入的数据对检索可见。
func (c *MilvusClient) FlushCollection(ctx context.Context) error {
	collName := c.Config.CollectionName
	if err := c.Client.Flush(ctx, collName, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// buildIndexFromConfig 是一个辅助函数，用于从配置构建索引实体。
func (c *MilvusClient) buildIndexFromConfig() (entity.Index, error) {
	indexCfg := c.Config.Index
	metricType := entity.MetricType(indexCfg.MetricType)
	if metricType != entity.L2 {
		return nil, fmt.Errorf("检索使用 L2 距离, 不支持的度量类型: %s", indexCfg.MetricType)
	}

	intParam := func(name string, fallback int) int {
		if v, ok := indexCfg.Params[name].(int); ok {
			return v
		}
		return fallback
	}

	switch indexCfg.IndexType {
	case "FLAT":
		return entity.NewIndexFlat(metricType)
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, intParam("nlist", 128))
	case "HNSW":
		return entity.NewIndexHNSW(metricType, intParam("M", 8), intParam("efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, intParam("nlist", 128))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", indexCfg.IndexType)
	}
}

// SearchParam 返回与索引类型匹配的检索参数。
func (c *MilvusClient) SearchParam() (entity.SearchParam, error) {
	indexCfg := c.Config.Index
	switch indexCfg.IndexType {
	case "IVF_FLAT", "IVF_SQ8":
		nprobe, ok := indexCfg.Params["nprobe"].(int)
		if !ok {
			nprobe = 16
		}
		return entity.NewIndexIvfFlatSearchParam(nprobe)
	case "HNSW":
		ef, ok := indexCfg.Params["ef"].(int)
		if !ok {
			ef = 64
		}
		return entity.NewIndexHNSWSearchParam(ef)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return entity.NewIndexFlatSearchParam()
	}
}
