package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
)

type setClientRateRequest struct {
	RateType        string   `json:"rate_type"`
	UnitAmountCents *int64   `json:"unit_amount_cents"`
	Percent         *float64 `json:"percent"`
}

func (s *Server) SetClientRate(c *gin.Context) {
	var req setClientRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	clientID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	serviceID, err := parseID(c.Param("service_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rate, err := s.clientSvc.SetCustomRate(c.Request.Context(), clientID, serviceID, clientdomain.SetCustomRateInput{
		RateType:        clientdomain.RateType(req.RateType),
		UnitAmountCents: req.UnitAmountCents,
		Percent:         req.Percent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rate})
}
