package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// AppCtx 在注册路由时交给业务方的上下文。
type AppCtx struct {
	Mux *http.ServeMux
}

// AppInfo 描述启动一个 HTTP 服务所需的信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在收到退出信号后按注册相反的顺序执行（后进先出）。
	OnShutdown []func(ctx context.Context) error
}

// StartService 封装通用的启动与优雅关停逻辑，阻塞直至进程退出。
func StartService(info AppInfo) {
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux})
	}

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(info.Port),
		Handler: mux,
	}
	go func() {
		log.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Str("service", info.ServiceName).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先停 HTTP，让在途请求收尾，再按 LIFO 清理其余组件
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	for i := len(info.OnShutdown) - 1; i >= 0; i-- {
		if err := info.OnShutdown[i](ctx); err != nil {
			log.Error().Err(err).Msg("shutdown hook error")
		}
	}

	log.Info().Str("service", info.ServiceName).Msg("gracefully shut down")
}
