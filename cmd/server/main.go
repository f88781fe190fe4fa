package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/studiosign/internal/buildinfo"
	"github.com/dmitrijs2005/studiosign/internal/server"
	"github.com/dmitrijs2005/studiosign/internal/server/config"

	_ "time/tzdata"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
