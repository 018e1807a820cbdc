package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mintzusung/restaurant-orders/internal/apperr"
	"github.com/mintzusung/restaurant-orders/internal/auth"
	"github.com/mintzusung/restaurant-orders/internal/cart"
	"github.com/mintzusung/restaurant-orders/internal/catalog"
	"github.com/mintzusung/restaurant-orders/internal/httpx"
	"github.com/mintzusung/restaurant-orders/internal/order"
	"github.com/mintzusung/restaurant-orders/internal/rbac"
	"github.com/mintzusung/restaurant-orders/internal/user"
)

// require authorizes the caller for action or writes a 403 and reports false.
func require(c *gin.Context, action rbac.Action, hint rbac.Hint) bool {
	id := auth.IdentityFrom(c)
	if !rbac.Authorize(id.Roles, action, hint) {
		httpx.Fail(c, apperr.New(apperr.Permission, "role not allowed to perform %s", action))
		return false
	}
	return true
}

//
// ===== auth =====
//

// registerHandler creates a plain customer account.
// @Summary Register a new user
// @Accept json
// @Produce json
// @Param request body user.RegisterRequest true "account"
// @Success 201 {object} user.User
// @Failure 409 {object} httpx.ErrorResponse
// @Router /register [post]
func registerHandler(users user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		if req.Username == "" || req.Email == "" || req.Password == "" {
			httpx.Fail(c, apperr.New(apperr.Validation, "username, email and password are required"))
			return
		}
		hash, err := user.HashPassword(req.Password)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		u := &user.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Roles:        []string{},
		}
		if err := users.Create(c.Request.Context(), u); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

// @Summary Log in and receive an access/refresh pair
// @Accept json
// @Produce json
// @Success 200 {object} auth.Pair
// @Failure 401 {object} httpx.ErrorResponse
// @Router /login [post]
func loginHandler(sessions *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		pair, err := sessions.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

func refreshHandler(sessions *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		pair, err := sessions.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

//
// ===== catalog =====
//

func listCategoriesHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.BrowseCatalog, rbac.Hint{}) {
			return
		}
		out, err := menu.ListCategories(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func createCategoryHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ManageCatalog, rbac.Hint{}) {
			return
		}
		var req catalog.CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
			httpx.Fail(c, apperr.New(apperr.Validation, "title is required"))
			return
		}
		cat := &catalog.Category{ID: uuid.NewString(), Title: req.Title}
		if err := menu.CreateCategory(c.Request.Context(), cat); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

func getCategoryHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.BrowseCatalog, rbac.Hint{}) {
			return
		}
		cat, err := menu.GetCategory(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func updateCategoryHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ManageCatalog, rbac.Hint{}) {
			return
		}
		var req catalog.CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
			httpx.Fail(c, apperr.New(apperr.Validation, "title is required"))
			return
		}
		cat := &catalog.Category{ID: c.Param("id"), Title: req.Title}
		if err := menu.UpdateCategory(c.Request.Context(), cat); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func deleteCategoryHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ManageCatalog, rbac.Hint{}) {
			return
		}
		ok, err := menu.DeleteCategory(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if !ok {
			httpx.Fail(c, apperr.New(apperr.NotFound, "category not found"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// listMenuItemsHandler browses the menu with ?category= and ?sort=price.
// @Summary List menu items
// @Produce json
// @Param category query string false "category id filter"
// @Param sort query string false "price for ascending price order"
// @Success 200 {array} catalog.MenuItem
// @Security BearerAuth
// @Router /menu-items [get]
func listMenuItemsHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.BrowseCatalog, rbac.Hint{}) {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		q := catalog.Query{
			CategoryID:  c.Query("category"),
			SortByPrice: c.Query("sort") == "price",
			Limit:       limit,
			Offset:      offset,
		}
		out, err := menu.ListItems(c.Request.Context(), q)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if out == nil {
			out = []catalog.MenuItem{}
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func getMenuItemHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.BrowseCatalog, rbac.Hint{}) {
			return
		}
		m, err := menu.GetItem(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func createMenuItemHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ManageCatalog, rbac.Hint{}) {
			return
		}
		var req catalog.CreateMenuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" || req.CategoryID == "" {
			httpx.Fail(c, apperr.New(apperr.Validation, "title, price and category_id are required"))
			return
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			httpx.Fail(c, apperr.New(apperr.Validation, "price must be a non-negative decimal"))
			return
		}
		m := &catalog.MenuItem{ID: uuid.NewString(), Title: req.Title, Price: price, CategoryID: req.CategoryID}
		if err := menu.CreateItem(c.Request.Context(), m); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

func updateMenuItemHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ManageCatalog, rbac.Hint{}) {
			return
		}
		var req catalog.UpdateMenuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		m := &catalog.MenuItem{ID: c.Param("id"), Title: req.Title, CategoryID: req.CategoryID}
		updatePrice := false
		if req.Price != "" {
			price, err := decimal.NewFromString(req.Price)
			if err != nil || price.IsNegative() {
				httpx.Fail(c, apperr.New(apperr.Validation, "price must be a non-negative decimal"))
				return
			}
			m.Price = price
			updatePrice = true
		}
		if err := menu.UpdateItem(c.Request.Context(), m, updatePrice); err != nil {
			httpx.Fail(c, err)
			return
		}
		out, err := menu.GetItem(c.Request.Context(), m.ID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func deleteMenuItemHandler(menu catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ManageCatalog, rbac.Hint{}) {
			return
		}
		ok, err := menu.DeleteItem(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if !ok {
			httpx.Fail(c, apperr.New(apperr.NotFound, "menu item not found"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

//
// ===== cart =====
//

func listCartHandler(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.UseCart, rbac.Hint{IsOwner: true}) {
			return
		}
		id := auth.IdentityFrom(c)
		lines, err := store.ListItems(c.Request.Context(), id.UserID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": lines})
	}
}

// addCartItemHandler adds to the caller's own cart; re-adding merges quantity.
// @Summary Add a menu item to the cart
// @Accept json
// @Produce json
// @Param request body cart.AddItemRequest true "line"
// @Success 201 {object} cart.Line
// @Failure 400 {object} httpx.ErrorResponse
// @Security BearerAuth
// @Router /cart [post]
func addCartItemHandler(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.UseCart, rbac.Hint{IsOwner: true}) {
			return
		}
		var req cart.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		id := auth.IdentityFrom(c)
		line, err := store.AddItem(c.Request.Context(), id.UserID, req.MenuItemID, req.Quantity)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

func removeCartItemHandler(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.UseCart, rbac.Hint{IsOwner: true}) {
			return
		}
		id := auth.IdentityFrom(c)
		if err := store.RemoveItem(c.Request.Context(), id.UserID, c.Param("menu_item_id")); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func clearCartHandler(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.UseCart, rbac.Hint{IsOwner: true}) {
			return
		}
		id := auth.IdentityFrom(c)
		if err := store.ClearCart(c.Request.Context(), id.UserID); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cart cleared"})
	}
}

//
// ===== orders =====
//

// createOrderHandler converts the caller's cart into a new order.
// @Summary Create an order from the cart
// @Produce json
// @Success 201 {object} order.Order
// @Failure 400 {object} httpx.ErrorResponse
// @Security BearerAuth
// @Router /orders [post]
func createOrderHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.IdentityFrom(c)
		o, lines, err := engine.CreateFromCart(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": o, "items": lines})
	}
}

func listOrdersHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.IdentityFrom(c)
		out, err := engine.List(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func getOrderHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.IdentityFrom(c)
		o, lines, err := engine.Get(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": lines})
	}
}

func deleteOrderHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.IdentityFrom(c)
		if err := engine.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// assignOrderHandler binds a delivery crew user to a created order.
// @Summary Assign an order to a delivery crew user
// @Accept json
// @Produce json
// @Param request body order.AssignRequest true "assignment"
// @Success 202 {object} order.Order
// @Failure 409 {object} httpx.ErrorResponse
// @Security BearerAuth
// @Router /orders/{id}/assign [post]
func assignOrderHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		id := auth.IdentityFrom(c)
		o, err := engine.Assign(c.Request.Context(), id, c.Param("id"), req.DeliveryCrewID)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "order assigned", "order": o})
	}
}

func deliverOrderHandler(engine *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.IdentityFrom(c)
		o, err := engine.MarkDelivered(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "order marked as delivered", "order": o})
	}
}

//
// ===== users =====
//

func listUsersHandler(users user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.ListUsers, rbac.Hint{}) {
			return
		}
		out, err := users.List(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

// promoteUserHandler grants manager or delivery_crew to the target user.
func promoteUserHandler(users user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !require(c, rbac.PromoteUser, rbac.Hint{}) {
			return
		}
		var req user.PromoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, apperr.New(apperr.Validation, "invalid json"))
			return
		}
		role := rbac.ParseRole(req.Role)
		if role != rbac.Manager && role != rbac.DeliveryCrew {
			httpx.Fail(c, apperr.New(apperr.Validation, "role must be manager or delivery_crew"))
			return
		}
		if err := users.AddRole(c.Request.Context(), c.Param("id"), role); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": req.Role + " added"})
	}
}
