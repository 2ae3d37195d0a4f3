package junction

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	JunctionServiceName = "city.junction.v1.JunctionService"

	GetSnapshotProcedure = "/" + JunctionServiceName + "/GetSnapshot"
	PauseProcedure       = "/" + JunctionServiceName + "/Pause"
	ResumeProcedure      = "/" + JunctionServiceName + "/Resume"
	StopProcedure        = "/" + JunctionServiceName + "/Stop"
)

// Register 将路口服务注册到sidecar
// 功能：显示层通过RPC读取快照并发送暂停/恢复/停止指令
// 参数：sidecar-同步器侧车实例
func (j *Junction) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		JunctionServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return j.Handler(opts...)
		},
		syncer.WithNoLock(),
	)
}

// Handler 创建路口服务的HTTP处理器
// 返回：路由前缀与处理器
func (j *Junction) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetSnapshotProcedure, connect.NewUnaryHandler(GetSnapshotProcedure, j.GetSnapshot, opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, j.control0(j.Pause), opts...))
	mux.Handle(ResumeProcedure, connect.NewUnaryHandler(ResumeProcedure, j.control0(j.Resume), opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, j.control0(j.Stop), opts...))
	return "/" + JunctionServiceName + "/", mux
}

// GetSnapshot RPC接口：获取路口快照
// 功能：返回灯色、相位、优先标志与车道统计；请求中的"lanes"字段（车道名列表）可选，用于只返回部分车道
// 说明：包含不存在的车道名时返回InvalidArgument
func (j *Junction) GetSnapshot(
	ctx context.Context, in *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var names []string
	if v, ok := in.Msg.GetFields()["lanes"]; ok {
		for _, item := range v.GetListValue().GetValues() {
			names = append(names, item.GetStringValue())
		}
	}
	view := j.View()
	byName := lo.SliceToMap(view.Lanes, func(l LaneView) (string, LaneView) {
		return l.ID.String(), l
	})
	lanes, failed := utils.Find(byName, view.Lanes, names)
	if len(failed) > 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown lanes: %s", strings.Join(failed, ",")))
	}
	view.Lanes = lanes
	out, err := viewToStruct(view)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// control0 把无参数的控制指令包装为RPC接口
func (j *Junction) control0(f func()) func(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	return func(ctx context.Context, in *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
		f()
		return connect.NewResponse(&emptypb.Empty{}), nil
	}
}

// viewToStruct 把快照转换为structpb.Struct
func viewToStruct(v View) (*structpb.Struct, error) {
	lanes := lo.Map(v.Lanes, func(l LaneView, _ int) any {
		return map[string]any{
			"id":       l.ID.String(),
			"waiting":  lo.Map(l.Waiting, func(id entity.VehicleID, _ int) any { return uint64(id) }),
			"passed":   l.Passed,
			"priority": l.Priority,
		}
	})
	return structpb.NewStruct(map[string]any{
		"t":               v.T.Seconds(),
		"paused":          v.Paused,
		"ac":              v.AC.String(),
		"bd":              v.BD.String(),
		"phase":           v.Phase.String(),
		"cycle":           v.Cycle,
		"remaining":       v.Remaining.Seconds(),
		"priority_lane":   v.PriorityLane.String(),
		"priority_active": v.PriorityActive,
		"departed":        v.Departed,
		"dropped":         v.Dropped,
		"lanes":           lanes,
	})
}

// Client 路口服务客户端
type Client struct {
	snapshot *connect.Client[structpb.Struct, structpb.Struct]
	pause    *connect.Client[emptypb.Empty, emptypb.Empty]
	resume   *connect.Client[emptypb.Empty, emptypb.Empty]
	stop     *connect.Client[emptypb.Empty, emptypb.Empty]
}

// NewClient 创建路口服务客户端
// 参数：httpClient-HTTP客户端，baseURL-服务地址（如http://localhost:51102）
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		snapshot: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetSnapshotProcedure, opts...),
		pause:    connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+PauseProcedure, opts...),
		resume:   connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+ResumeProcedure, opts...),
		stop:     connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+StopProcedure, opts...),
	}
}

// Snapshot 获取路口快照，lanes为空时返回全部车道
func (c *Client) Snapshot(ctx context.Context, lanes ...string) (*structpb.Struct, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if len(lanes) > 0 {
		list, err := structpb.NewList(lo.ToAnySlice(lanes))
		if err != nil {
			return nil, err
		}
		req.Fields["lanes"] = structpb.NewListValue(list)
	}
	res, err := c.snapshot.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := c.pause.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return err
}

func (c *Client) Resume(ctx context.Context) error {
	_, err := c.resume.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return err
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := c.stop.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return err
}
