package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printfan/internal/assignment"
	"github.com/smallbiznis/printfan/internal/clock"
	"github.com/smallbiznis/printfan/internal/config"
	"github.com/smallbiznis/printfan/internal/dispatch"
	"github.com/smallbiznis/printfan/internal/healthmon"
	"github.com/smallbiznis/printfan/internal/migration"
	"github.com/smallbiznis/printfan/internal/observability"
	"github.com/smallbiznis/printfan/internal/printer"
	"github.com/smallbiznis/printfan/internal/render"
	"github.com/smallbiznis/printfan/internal/segregate"
	"github.com/smallbiznis/printfan/internal/server"
	"github.com/smallbiznis/printfan/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		printer.Module,
		assignment.Module,
		segregate.Module,
		render.Module,
		dispatch.Module,
		healthmon.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
