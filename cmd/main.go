package main

import (
	"github.com/canteen-platform/order-core/internal/app"
	"github.com/canteen-platform/order-core/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
