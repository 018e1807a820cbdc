package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mintzusung/restaurant-orders/docs"
	"github.com/mintzusung/restaurant-orders/internal/auth"
	"github.com/mintzusung/restaurant-orders/internal/cart"
	"github.com/mintzusung/restaurant-orders/internal/catalog"
	"github.com/mintzusung/restaurant-orders/internal/config"
	"github.com/mintzusung/restaurant-orders/internal/httpx"
	"github.com/mintzusung/restaurant-orders/internal/order"
	"github.com/mintzusung/restaurant-orders/internal/user"
)

// @title Restaurant Orders API
// @version 1.0
// @description Menu browsing, per-user carts, and the order lifecycle.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("postgres ping: %v", err)
	}

	users := user.NewPGRepo(pool)
	menu := catalog.NewPGRepo(pool)
	store := cart.NewStore(cart.NewPGRepo(pool), menu)
	engine := order.NewEngine(order.NewPGRepo(pool), users)
	sessions := auth.NewService(auth.NewPGRepo(pool), users, cfg.AccessTTL, cfg.RefreshTTL)

	r := newRouter(sessions, users, menu, store, engine)
	log.Printf("api listening on %s", cfg.APIAddr)
	log.Fatal(r.Run(cfg.APIAddr))
}

func newRouter(sessions *auth.Service, users user.Repository, menu catalog.Repository, store *cart.Store, engine *order.Engine) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/register", registerHandler(users))
	r.POST("/login", loginHandler(sessions))
	r.POST("/refresh", refreshHandler(sessions))

	api := r.Group("", auth.Middleware(sessions))

	api.GET("/categories", listCategoriesHandler(menu))
	api.POST("/categories", createCategoryHandler(menu))
	api.GET("/categories/:id", getCategoryHandler(menu))
	api.PUT("/categories/:id", updateCategoryHandler(menu))
	api.DELETE("/categories/:id", deleteCategoryHandler(menu))

	api.GET("/menu-items", listMenuItemsHandler(menu))
	api.GET("/menu-items/:id", getMenuItemHandler(menu))
	api.POST("/menu-items", createMenuItemHandler(menu))
	api.PUT("/menu-items/:id", updateMenuItemHandler(menu))
	api.DELETE("/menu-items/:id", deleteMenuItemHandler(menu))

	api.GET("/cart", listCartHandler(store))
	api.POST("/cart", addCartItemHandler(store))
	api.DELETE("/cart", clearCartHandler(store))
	api.DELETE("/cart/:menu_item_id", removeCartItemHandler(store))

	api.GET("/orders", listOrdersHandler(engine))
	api.POST("/orders", createOrderHandler(engine))
	api.GET("/orders/:id", getOrderHandler(engine))
	api.DELETE("/orders/:id", deleteOrderHandler(engine))
	api.POST("/orders/:id/assign", assignOrderHandler(engine))
	api.POST("/orders/:id/deliver", deliverOrderHandler(engine))

	api.GET("/users", listUsersHandler(users))
	api.POST("/users/:id/promote", promoteUserHandler(users))

	return r
}
