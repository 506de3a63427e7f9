package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
)

type createOrdersRequest struct {
	ClientID  string               `json:"client_id"`
	ServiceID string               `json:"service_id"`
	Targets   []orderdomain.Target `json:"targets"`
}

func (s *Server) CreateOrders(c *gin.Context) {
	var req createOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	clientID, err := parseID(req.ClientID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	serviceID, err := parseID(req.ServiceID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orders, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrdersRequest{
		ClientID:  clientID,
		ServiceID: serviceID,
		Targets:   req.Targets,
		CreatedBy: requestActor(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

type createMultiServiceRequest struct {
	ClientID   string                         `json:"client_id"`
	CategoryID string                         `json:"category_id"`
	Link       string                         `json:"link"`
	Items      []multiServiceItemRequest      `json:"services"`
}

type multiServiceItemRequest struct {
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) CreateMultiServiceOrders(c *gin.Context) {
	var req createMultiServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	clientID, err := parseID(req.ClientID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	categoryID, err := parseID(req.CategoryID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	items := make([]orderdomain.MultiServiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		serviceID, err := parseID(item.ServiceID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		items = append(items, orderdomain.MultiServiceItem{
			ServiceID: serviceID,
			Quantity:  item.Quantity,
		})
	}

	orders, err := s.orderSvc.CreateMultiService(c.Request.Context(), orderdomain.CreateMultiServiceRequest{
		ClientID:   clientID,
		CategoryID: categoryID,
		Link:       req.Link,
		Items:      items,
		CreatedBy:  requestActor(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) GetOrder(c *gin.Context) {
	clientID, err := parseID(c.Query("client_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orderSvc.GetByID(c.Request.Context(), clientID, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) ListOrders(c *gin.Context) {
	clientID, err := parseID(c.Query("client_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orders, err := s.orderSvc.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

type cancelOrderRequest struct {
	ClientID string `json:"client_id"`
}

func (s *Server) CancelOrder(c *gin.Context) {
	req, err := s.bindCancel(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.CancelFull(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) CancelOrderPartial(c *gin.Context) {
	req, err := s.bindCancel(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.CancelPartial(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) bindCancel(c *gin.Context) (orderdomain.CancelRequest, error) {
	var body cancelOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return orderdomain.CancelRequest{}, ErrInvalidRequest
	}

	clientID, err := parseID(body.ClientID)
	if err != nil {
		return orderdomain.CancelRequest{}, ErrInvalidRequest
	}
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return orderdomain.CancelRequest{}, ErrInvalidRequest
	}

	return orderdomain.CancelRequest{ClientID: clientID, OrderID: orderID}, nil
}

type refundOrderRequest struct {
	Delivered int    `json:"delivered"`
	Status    string `json:"status"`
}

func (s *Server) RefundOrder(c *gin.Context) {
	var body refundOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orderID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orderSvc.Refund(c.Request.Context(), orderdomain.RefundRequest{
		OrderID:   orderID,
		Delivered: body.Delivered,
		Status:    orderdomain.OrderStatus(strings.TrimSpace(body.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

type bulkCancelRequest struct {
	ClientID  string   `json:"client_id"`
	ServiceID string   `json:"service_id"`
	Statuses  []string `json:"statuses"`
	OrderIDs  []string `json:"order_ids"`
}

func (s *Server) BulkCancelOrders(c *gin.Context) {
	var body bulkCancelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := orderdomain.BulkCancelRequest{}
	if strings.TrimSpace(body.ClientID) != "" {
		id, err := parseID(body.ClientID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.ClientID = &id
	}
	if strings.TrimSpace(body.ServiceID) != "" {
		id, err := parseID(body.ServiceID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.ServiceID = &id
	}
	for _, status := range body.Statuses {
		req.Statuses = append(req.Statuses, orderdomain.OrderStatus(strings.TrimSpace(status)))
	}
	for _, raw := range body.OrderIDs {
		id, err := parseID(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.OrderIDs = append(req.OrderIDs, id)
	}

	result, err := s.orderSvc.BulkCancel(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListTransactions(c *gin.Context) {
	clientID, err := parseID(c.Query("client_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entries, err := s.ledgerSvc.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

// requestActor names the caller for audit fields. There is no auth layer
// in this host; trusted upstream proxies set the header.
func requestActor(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Actor"))
}
