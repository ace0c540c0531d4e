package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/example/embutidos/internal/server"
	"github.com/example/embutidos/internal/service"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
	seedSamples       bool
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea el administrador inicial y, opcionalmente, datos de ejemplo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			return seed(cmd.Context(), cmd.OutOrStdout(), services(cfg, db), seedAdminEmail, seedAdminPassword, seedSamples)
		},
	}
	cmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@eltio.com", "correo del administrador")
	cmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "contraseña del administrador (requerida)")
	cmd.Flags().BoolVar(&seedSamples, "samples", false, "cargar categorías y productos de ejemplo si el catálogo está vacío")
	return cmd
}

type sampleProduct struct {
	name, category, cost, price string
	stock                       int64
	shelfLife                   time.Duration
}

var samples = []sampleProduct{
	{"Chorizo parrillero", "Chorizos", "9.00", "15.00", 40, 20 * 24 * time.Hour},
	{"Chorizo ahumado", "Chorizos", "11.00", "18.50", 25, 45 * 24 * time.Hour},
	{"Jamón serrano", "Jamones", "30.00", "48.00", 12, 180 * 24 * time.Hour},
	{"Salame milano", "Salames", "8.00", "13.00", 30, 90 * 24 * time.Hour},
}

// seed 可重复执行：管理员已存在则跳过，示例数据只在目录为空时写入
func seed(ctx context.Context, out io.Writer, svc *server.Services, email, password string, withSamples bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	u, created, err := svc.Users.EnsureAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if created {
		fmt.Fprintf(out, "administrador creado: %s (id %d)\n", u.Email, u.ID)
	} else {
		fmt.Fprintf(out, "administrador existente: %s (id %d)\n", u.Email, u.ID)
	}
	if !withSamples {
		return nil
	}

	existing, err := svc.Products.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Fprintf(out, "catálogo con %d productos, sin cambios\n", len(existing))
		return nil
	}

	categories := map[string]int64{}
	now := time.Now()
	for _, s := range samples {
		id, ok := categories[s.category]
		if !ok {
			c, err := svc.Categories.Create(ctx, s.category, "")
			if err != nil {
				return fmt.Errorf("category %s: %w", s.category, err)
			}
			id = c.ID
			categories[s.category] = id
		}
		catID := id
		expires := now.Add(s.shelfLife)
		if _, err := svc.Products.Create(ctx, service.ProductInput{
			Name:           s.name,
			CategoryID:     &catID,
			ProductionCost: decimal.RequireFromString(s.cost),
			SalePrice:      decimal.RequireFromString(s.price),
			Stock:          s.stock,
			ExpiresAt:      &expires,
		}); err != nil {
			return fmt.Errorf("product %s: %w", s.name, err)
		}
	}
	fmt.Fprintf(out, "%d categorías y %d productos de ejemplo creados\n", len(categories), len(samples))
	return nil
}
