// Code structured after the teacher's goctl-scaffolded service mains.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/config"
	"github.com/gitdwsong72/auth-system/internal/handler"
	"github.com/gitdwsong72/auth-system/internal/svc"
)

var configFile = flag.String("f", "etc/authsvc.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	ctx, err := svc.NewServiceContext(c)
	if err != nil {
		logx.Errorf("failed to build service context: %v", err)
		panic(err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx.StartBackgroundTasks(bgCtx)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, ctx)

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	logx.Infof("starting authsvc at %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logx.Errorf("server stopped: %v", err)
	}
}
