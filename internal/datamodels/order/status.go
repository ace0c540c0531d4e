package order

import (
	"encoding/json"
	"fmt"
)

// Status 订单状态，取值与历史数据库中的整数一致
type Status int

const (
	StatusPending   Status = 1
	StatusPaid      Status = 2
	StatusShipped   Status = 3
	StatusDelivered Status = 4
)

// 唯一的状态名称表
var statusNames = map[Status]string{
	StatusPending:   "Pendiente",
	StatusPaid:      "Pagado",
	StatusShipped:   "Enviado",
	StatusDelivered: "Entregado",
}

// Statuses 按顺序返回全部状态
func Statuses() []Status {
	return []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered}
}

// SettledStatuses 已付款及之后的状态
func SettledStatuses() []Status {
	return []Status{StatusPaid, StatusShipped, StatusDelivered}
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Settled 是否已付款（已付款/已发货/已送达）
func (s Status) Settled() bool {
	return s.Valid() && s >= StatusPaid
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus 由整数解析状态
func ParseStatus(v int) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return 0, fmt.Errorf("unknown order status %d", v)
	}
	return s, nil
}

// MarshalJSON 输出 {"id":2,"name":"Pagado"}
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}{ID: int(s), Name: s.String()})
}
