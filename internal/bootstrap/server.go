package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/airretail/api"
	"github.com/Domenick1991/airretail/config"
	"github.com/Domenick1991/airretail/internal/service/offers"
	"github.com/Domenick1991/airretail/internal/service/orders"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, offerSvc offers.OfferUseCase, orderSvc orders.OrderUseCase) error {
	router := newRouter(offerSvc, orderSvc)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(offerSvc offers.OfferUseCase, orderSvc orders.OrderUseCase) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	v1 := router.Group("/api/v1")
	api.NewOfferHandler(offerSvc).Register(v1.Group("/offers"))
	api.NewOrderHandler(orderSvc).Register(v1.Group("/orders"))
	api.NewAdminHandler(orderSvc).Register(v1.Group("/admin"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
