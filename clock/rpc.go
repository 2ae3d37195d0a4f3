package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"git.fiblab.net/sim/syncer/v3"
)

// Register 将ClockService注册到sidecar
// 功能：使显示层可以通过RPC查询当前逻辑时间
// 参数：sidecar-sidecar实例
func (c *Clock) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		clockv1connect.ClockServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return c.Handler(opts...)
		},
		syncer.WithNoLock(),
	)
}

// Handler 创建ClockService的HTTP处理器
func (c *Clock) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return clockv1connect.NewClockServiceHandler(c, opts...)
}

// Now 获取当前逻辑时间（秒），暂停期间返回冻结的时间
func (c *Clock) Now(ctx context.Context, in *connect.Request[clockv1.NowRequest]) (*connect.Response[clockv1.NowResponse], error) {
	return connect.NewResponse(&clockv1.NowResponse{
		T: c.Elapsed().Seconds(),
	}), nil
}
