package config

import (
	"time"

	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
)

// Control 模拟过程控制配置
// 功能：定义逻辑时间的推进速度、暂停/停止信号的响应粒度与随机种子
type Control struct {
	Speed        float64       `yaml:"speed,omitempty"`         // 每秒墙钟时间对应的逻辑秒数，默认1
	PollInterval time.Duration `yaml:"poll_interval,omitempty"` // 挂起时检查控制信号的逻辑间隔，默认100ms，不超过200ms
	Seed         uint64        `yaml:"seed,omitempty"`          // 出口方向随机选择的种子
}

// Junction 路口配置
// 说明：车道名由entity.LaneID的UnmarshalText直接解析，未知车道名在Parse阶段报错
type Junction struct {
	PriorityLane *entity.LaneID        `yaml:"priority_lane,omitempty"` // 优先车道，默认AL2，必须属于A或C进口的2、3号车道
	Preload      map[entity.LaneID]int `yaml:"preload,omitempty"`       // 启动时预先注入的车辆数（车道名->数量）
	FeedBuffer   int                   `yaml:"feed_buffer,omitempty"`   // 驶离事件订阅者的缓冲长度，默认256
}

// Output 驶离记录输出配置（MongoDB），URI为空则不输出
type Output struct {
	URI           string        `yaml:"uri,omitempty"`            // MongoDB连接字符串
	DB            string        `yaml:"db,omitempty"`             // 数据库名
	Col           string        `yaml:"col,omitempty"`            // 集合名
	Batch         int           `yaml:"batch,omitempty"`          // 批量写入条数，默认100
	FlushInterval time.Duration `yaml:"flush_interval,omitempty"` // 最长写入间隔（墙钟），默认1s
}

// Config YAML配置文件的根结构
type Config struct {
	Control  Control  `yaml:"control"`          // 模拟过程控制
	Junction Junction `yaml:"junction"`         // 路口
	Output   Output   `yaml:"output,omitempty"` // 输出
}
