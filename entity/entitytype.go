package entity

import (
	"errors"
	"fmt"
	"time"
)

// Approach 路口进口方向
// 功能：标识四个进口道之一（A=北进口，B=南进口，C=东进口，D=西进口）
type Approach uint8

const (
	ApproachA Approach = iota // 北进口
	ApproachB                 // 南进口
	ApproachC                 // 东进口
	ApproachD                 // 西进口

	NumApproaches = 4
)

// Approaches 按A、B、C、D顺序排列的全部进口方向
var Approaches = [NumApproaches]Approach{ApproachA, ApproachB, ApproachC, ApproachD}

func (a Approach) String() string {
	if a >= NumApproaches {
		return fmt.Sprintf("Approach(%d)", uint8(a))
	}
	return string(rune('A' + a))
}

// Group 返回进口方向所属的相位组
func (a Approach) Group() Group {
	switch a {
	case ApproachA, ApproachC:
		return GroupAC
	case ApproachB, ApproachD:
		return GroupBD
	}
	log.Panicf("unknown approach %d", uint8(a))
	return GroupAC
}

// Group 相位组，同一组内的两个对向进口同时放行
type Group uint8

const (
	GroupAC Group = iota // A与C进口
	GroupBD              // B与D进口
)

func (g Group) String() string {
	if g == GroupAC {
		return "AC"
	}
	return "BD"
}

// Other 返回另一个相位组
func (g Group) Other() Group {
	if g == GroupAC {
		return GroupBD
	}
	return GroupAC
}

// 车道序号
const (
	LaneIndexReceiving = 1 // 驶出车道，仅作为目的地
	LaneIndexThrough   = 2 // 直行/右转车道
	LaneIndexLeft      = 3 // 左转车道

	LanesPerApproach = 3
	NumLanes         = NumApproaches * LanesPerApproach
)

var (
	ErrInvalidLaneID = errors.New("invalid lane id")
)

// LaneID 车道标识
// 功能：由进口方向与车道序号组成，取值范围固定为12个
// 说明：文本形式为"AL1"~"DL3"
type LaneID uint8

// Lane 由进口方向与车道序号构造车道ID，序号不在[1,3]内则panic
func Lane(a Approach, index int) LaneID {
	if a >= NumApproaches || index < 1 || index > LanesPerApproach {
		log.Panicf("invalid lane %v index %d", a, index)
	}
	return LaneID(uint8(a)*LanesPerApproach + uint8(index-1))
}

// AllLanes 按显示顺序（AL1, AL2, AL3, BL1, ...）返回全部车道
func AllLanes() []LaneID {
	lanes := make([]LaneID, NumLanes)
	for i := range lanes {
		lanes[i] = LaneID(i)
	}
	return lanes
}

// ParseLaneID 解析"AL2"形式的车道名
func ParseLaneID(s string) (LaneID, error) {
	if len(s) != 3 || s[1] != 'L' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLaneID, s)
	}
	a := s[0]
	if a < 'A' || a > 'D' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLaneID, s)
	}
	index := int(s[2] - '0')
	if index < 1 || index > LanesPerApproach {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLaneID, s)
	}
	return Lane(Approach(a-'A'), index), nil
}

// Valid 判断车道ID是否在固定取值范围内
func (l LaneID) Valid() bool {
	return l < NumLanes
}

// Approach 所属进口方向
func (l LaneID) Approach() Approach {
	return Approach(uint8(l) / LanesPerApproach)
}

// Index 车道序号（1~3）
func (l LaneID) Index() int {
	return int(uint8(l)%LanesPerApproach) + 1
}

// Outgoing 是否产生驶出交通（只有序号2、3的车道）
func (l LaneID) Outgoing() bool {
	return l.Index() != LaneIndexReceiving
}

func (l LaneID) String() string {
	if !l.Valid() {
		return fmt.Sprintf("LaneID(%d)", uint8(l))
	}
	return fmt.Sprintf("%vL%d", l.Approach(), l.Index())
}

// MarshalText 使车道ID在yaml/json中以"AL2"形式出现
func (l LaneID) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLaneID, uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *LaneID) UnmarshalText(text []byte) error {
	id, err := ParseLaneID(string(text))
	if err != nil {
		return err
	}
	*l = id
	return nil
}

// VehicleID 车辆标识，全局单调递增且不复用
type VehicleID uint64

// Vehicle 排队中的车辆
type Vehicle struct {
	ID     VehicleID
	Origin LaneID
}

// String 与显示层约定的标签形式"<lane>_<id>"
func (v Vehicle) String() string {
	return fmt.Sprintf("%v_%d", v.Origin, v.ID)
}

// Departure 驶离事件
// 功能：车辆出队时发出，携带起点车道、分配的目的车道与车辆ID
type Departure struct {
	Origin      LaneID
	Destination LaneID
	Vehicle     VehicleID
	At          time.Duration // 逻辑时间
}

func (d Departure) String() string {
	return fmt.Sprintf("Departure{%v_%d %v->%v t=%v}", d.Origin, d.Vehicle, d.Origin, d.Destination, d.At)
}
