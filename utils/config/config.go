package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"gopkg.in/yaml.v2"
)

const (
	DefaultSpeed         = 1.0
	DefaultPollInterval  = 100 * time.Millisecond
	MaxPollInterval      = 200 * time.Millisecond
	DefaultFeedBuffer    = 256
	DefaultBatch         = 100
	DefaultFlushInterval = time.Second
)

var (
	DefaultPriorityLane = entity.Lane(entity.ApproachA, entity.LaneIndexThrough)

	ErrInvalidConfig = errors.New("invalid config")
)

// RuntimeConfig 运行时配置
// 功能：填充默认值并校验之后的配置
type RuntimeConfig struct {
	All Config  // 全部配置（已填充默认值）
	C   Control // 全局控制配置

	PriorityLane entity.LaneID         // 优先车道
	Preload      map[entity.LaneID]int // 启动时注入的车辆数
}

// Parse 严格解析YAML配置（未知字段报错）
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Dump 把配置编码为YAML，车道ID以"AL2"形式输出
func Dump(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}

// NewRuntimeConfig 根据配置生成运行时配置
// 功能：填充默认值，校验取值范围与车道用途
// 参数：config-原始配置对象
// 返回：运行时配置，配置无效时返回错误
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	c := &config.Control
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
	if c.Speed < 0 {
		return nil, fmt.Errorf("%w: control.speed must be positive, got %v", ErrInvalidConfig, c.Speed)
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval < 0 || c.PollInterval > MaxPollInterval {
		return nil, fmt.Errorf("%w: control.poll_interval must be in (0, %v], got %v", ErrInvalidConfig, MaxPollInterval, c.PollInterval)
	}

	j := &config.Junction
	if j.FeedBuffer == 0 {
		j.FeedBuffer = DefaultFeedBuffer
	}
	if j.FeedBuffer < 0 {
		return nil, fmt.Errorf("%w: junction.feed_buffer must not be negative", ErrInvalidConfig)
	}
	rc := &RuntimeConfig{
		PriorityLane: DefaultPriorityLane,
		Preload:      make(map[entity.LaneID]int, len(j.Preload)),
	}
	if j.PriorityLane != nil {
		rc.PriorityLane = *j.PriorityLane
	}
	if !rc.PriorityLane.Valid() || rc.PriorityLane.Approach().Group() != entity.GroupAC || !rc.PriorityLane.Outgoing() {
		return nil, fmt.Errorf("%w: junction.priority_lane %v must be an outgoing lane of approach A or C", ErrInvalidConfig, rc.PriorityLane)
	}
	for id, n := range j.Preload {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: junction.preload: %w", ErrInvalidConfig, entity.ErrInvalidLaneID)
		}
		if !id.Outgoing() {
			return nil, fmt.Errorf("%w: junction.preload[%v] is a receiving lane", ErrInvalidConfig, id)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: junction.preload[%v] must not be negative", ErrInvalidConfig, id)
		}
		rc.Preload[id] = n
	}

	o := &config.Output
	if o.URI != "" {
		if o.DB == "" || o.Col == "" {
			return nil, fmt.Errorf("%w: output.db and output.col are required when output.uri is set", ErrInvalidConfig)
		}
		if o.Batch <= 0 {
			o.Batch = DefaultBatch
		}
		if o.FlushInterval <= 0 {
			o.FlushInterval = DefaultFlushInterval
		}
	}

	rc.All = config
	rc.C = config.Control
	return rc, nil
}
