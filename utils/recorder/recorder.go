package recorder

import (
	"context"
	"sync/atomic"
	"time"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var log = logrus.WithField("module", "recorder")

// Record 一条驶离记录
type Record struct {
	RunID       string  `bson:"run_id"`
	Vehicle     int64   `bson:"vehicle"`
	Origin      string  `bson:"origin"`
	Destination string  `bson:"destination"`
	T           float64 `bson:"t"` // 逻辑时间（秒）
}

func newRecord(runID string, d entity.Departure) Record {
	return Record{
		RunID:       runID,
		Vehicle:     int64(d.Vehicle),
		Origin:      d.Origin.String(),
		Destination: d.Destination.String(),
		T:           d.At.Seconds(),
	}
}

// Recorder 驶离记录器
// 功能：订阅驶离事件并批量写入MongoDB
// 说明：达到批量条数或超过最长写入间隔时写入；写入失败只记录日志，不影响仿真
type Recorder struct {
	coll          *mongo.Collection
	runID         string
	batch         int
	flushInterval time.Duration

	buf     []Record
	written atomic.Int64
	failed  atomic.Int64
}

// New 创建记录器
// 参数：coll-目标集合，runID-本次运行的标识，batch-批量写入条数，flushInterval-最长写入间隔
func New(coll *mongo.Collection, runID string, batch int, flushInterval time.Duration) *Recorder {
	if batch <= 0 {
		batch = config.DefaultBatch
	}
	if flushInterval <= 0 {
		flushInterval = config.DefaultFlushInterval
	}
	return &Recorder{
		coll:          coll,
		runID:         runID,
		batch:         batch,
		flushInterval: flushInterval,
		buf:           make([]Record, 0, batch),
	}
}

// Open 根据输出配置连接MongoDB并创建记录器
// 返回：记录器与断开连接的函数
func Open(c config.Output, runID string) (*Recorder, func()) {
	client := mongoutil.NewClient(c.URI)
	coll := client.Database(c.DB).Collection(c.Col)
	log.Infof("record departures into %s.%s", c.DB, c.Col)
	return New(coll, runID, c.Batch, c.FlushInterval), func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warnf("failed to disconnect: %v", err)
		}
	}
}

// Run 消费驶离事件直到channel关闭或ctx取消，退出前写入剩余记录
func (r *Recorder) Run(ctx context.Context, events <-chan entity.Departure) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case d, ok := <-events:
			if !ok {
				r.flush(context.Background())
				log.Infof("recorder stopped, %d written, %d failed", r.Written(), r.Failed())
				return
			}
			r.buf = append(r.buf, newRecord(r.runID, d))
			if len(r.buf) >= r.batch {
				r.flush(ctx)
			}
		case <-ticker.C:
			r.flush(ctx)
		case <-ctx.Done():
			r.flush(context.Background())
			log.Infof("recorder cancelled, %d written, %d failed", r.Written(), r.Failed())
			return
		}
	}
}

// flush 写入缓冲区中的记录
func (r *Recorder) flush(ctx context.Context) {
	if len(r.buf) == 0 {
		return
	}
	docs := lo.ToAnySlice(r.buf)
	n := int64(len(docs))
	r.buf = r.buf[:0]
	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		log.Errorf("failed to insert %d records: %v", n, err)
		r.failed.Add(n)
		return
	}
	r.written.Add(n)
}

// Written 写入成功的记录数
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Failed 写入失败的记录数
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}
