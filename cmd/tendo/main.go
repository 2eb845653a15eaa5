package main

import (
	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	"github.com/Girosmedia/tendo-app-sub002/internal/config"
	"github.com/Girosmedia/tendo-app-sub002/internal/logger"
	"github.com/Girosmedia/tendo-app-sub002/internal/migration"
	"github.com/Girosmedia/tendo-app-sub002/internal/server"
	"github.com/Girosmedia/tendo-app-sub002/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
