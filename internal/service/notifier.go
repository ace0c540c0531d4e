package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/example/embutidos/internal/infra/mail"
)

var orderMailTmpl = template.Must(template.New("order").Parse(`<h2>¡Gracias por tu compra, {{.Customer}}!</h2>
<p>Pedido #{{.OrderID}} ({{.Channel}}), {{.Date}}</p>
<table>
<tr><th>Producto</th><th>Cantidad</th><th>Precio</th></tr>
{{range .Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p><b>Total: {{.Total}}</b></p>
<p>Embutidos El Tío</p>`))

var alertMailTmpl = template.Must(template.New("alerts").Parse(`<h2>Alertas de inventario {{.Date}}</h2>
{{if .LowStock}}<h3>Stock bajo</h3><ul>{{range .LowStock}}<li>{{.Name}}: {{.Stock}} (mínimo {{.Threshold}})</li>{{end}}</ul>{{end}}
{{if .Expired}}<h3>Vencidos</h3><ul>{{range .Expired}}<li>{{.Name}}: {{.ExpiresAt.Format "2006-01-02"}}</li>{{end}}</ul>{{end}}
{{if .Expiring}}<h3>Por vencer</h3><ul>{{range .Expiring}}<li>{{.Name}}: {{.ExpiresAt.Format "2006-01-02"}}</li>{{end}}</ul>{{end}}`))

// Notifier 订单确认邮件与库存告警邮件
type Notifier struct {
	orders  *OrderService
	users   *UserService
	reports *ReportService
	sender  mail.Sender
	adminTo string
}

// NewNotifier 创建通知服务
func NewNotifier(orders *OrderService, users *UserService, reports *ReportService, sender mail.Sender, adminTo string) *Notifier {
	return &Notifier{orders: orders, users: users, reports: reports, sender: sender, adminTo: adminTo}
}

// OrderPlaced 处理一条 order.placed 消息；返回 ErrNotFound 表示消息可以丢弃
func (n *Notifier) OrderPlaced(ctx context.Context, ev *OrderPlacedEvent) error {
	if ev.UserID == nil {
		return nil
	}
	d, err := n.orders.Details(ctx, ev.OrderID, 0)
	if err != nil {
		return err
	}
	u, err := n.users.GetByID(ctx, *ev.UserID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := orderMailTmpl.Execute(&buf, map[string]any{
		"Customer": u.FullName(),
		"OrderID":  d.ID,
		"Channel":  d.ChannelLabel,
		"Date":     d.PlacedAt.Format("2006-01-02 15:04"),
		"Items":    d.Items,
		"Total":    d.Total.StringFixed(2),
	}); err != nil {
		return err
	}
	if err := n.sender.Send(mail.Message{
		To:      u.Email,
		Subject: fmt.Sprintf("Pedido #%d confirmado", d.ID),
		HTML:    buf.String(),
	}); err != nil {
		return err
	}
	zap.L().Info("order confirmation sent", zap.Int64("order_id", d.ID), zap.String("to", u.Email))
	return nil
}

// InventoryDigest 发送库存告警；没有告警时不发信
func (n *Notifier) InventoryDigest(ctx context.Context, now time.Time) (*Alerts, error) {
	if n.adminTo == "" {
		return nil, errors.New("inventory digest: admin recipient not configured")
	}
	alerts, err := n.reports.Alerts(ctx, now)
	if err != nil {
		return nil, err
	}
	if alerts.Empty() {
		zap.L().Info("inventory digest: nothing to report")
		return alerts, nil
	}

	var buf bytes.Buffer
	if err := alertMailTmpl.Execute(&buf, map[string]any{
		"Date":     now.Format("2006-01-02"),
		"LowStock": alerts.LowStock,
		"Expired":  alerts.Expired,
		"Expiring": alerts.Expiring,
	}); err != nil {
		return nil, err
	}
	err = n.sender.Send(mail.Message{
		To:      n.adminTo,
		Subject: fmt.Sprintf("Inventario: %d stock bajo, %d vencidos, %d por vencer", len(alerts.LowStock), len(alerts.Expired), len(alerts.Expiring)),
		HTML:    buf.String(),
	})
	return alerts, err
}
