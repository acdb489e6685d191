package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/tracklane/tracklane/internal/migration"
	"github.com/tracklane/tracklane/internal/observability"
	"github.com/tracklane/tracklane/internal/server"
	"github.com/tracklane/tracklane/pkg/db"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
