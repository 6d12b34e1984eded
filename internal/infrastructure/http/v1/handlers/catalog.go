package handlers

import (
	"github.com/gin-gonic/gin"

	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/catalogs/supplier"
	"lotkeeper/internal/infrastructure/http/v1/dto"
)

// CatalogHandler serves the product, customer and supplier collaborators.
type CatalogHandler struct {
	*BaseHandler
	products  *product.Service
	customers *customer.Service
	suppliers *supplier.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, products *product.Service, customers *customer.Service, suppliers *supplier.Service) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, products: products, customers: customers, suppliers: suppliers}
}

// CreateProduct handles POST /products.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p := req.ToEntity()
	if err := h.products.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// GetProduct handles GET /products/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	p, err := h.products.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// ListProducts handles GET /products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.products.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// LowStock handles GET /products/low-stock.
func (h *CatalogHandler) LowStock(c *gin.Context) {
	items, err := h.products.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": orEmpty(items)})
}

// CreateCustomer handles POST /customers.
func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cu := req.ToEntity()
	if err := h.customers.Create(c.Request.Context(), cu); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cu)
}

// ListCustomers handles GET /customers.
func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	items, err := h.customers.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": orEmpty(items)})
}

// ReceivePayment handles POST /customers/:id/payments.
func (h *CatalogHandler) ReceivePayment(c *gin.Context) {
	customerID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	balance, err := h.customers.ReceivePayment(c.Request.Context(), customerID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PaymentResponse{DebtBalance: balance})
}

// ListSuppliers handles GET /suppliers.
func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	items, err := h.suppliers.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": orEmpty(items)})
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
