package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artsarchive/giving/internal/app/service/checkout"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	"github.com/artsarchive/giving/pkg/config"
	"github.com/artsarchive/giving/pkg/response"
)

// @Summary      Submit a checkout
// @Description  Validates a donation or gala submission, charges the tokenized card, and records the payment.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.Submission true "Checkout submission"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/checkout [post]
func ApiCheckout(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub checkout.Submission
		if err := c.ShouldBindJSON(&sub); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.Checkout(c.Request.Context(), &sub)
		if err != nil {
			var verr *checkout.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, verr.Error()))
				return
			}
			var apiErr *cybersource.APIError
			if errors.As(err, &apiErr) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, apiErr.Message))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Fetch a card-capture context
// @Description  Returns the one-time flex key the browser widget uses to tokenize card fields.
// @Tags         Checkout
// @Produce      json
// @Param        form_id  query  string  false  "Form id selecting the gateway environment"
// @Param        origin   query  string  true   "Target origin of the embedding page"
// @Success      200  {object}  handlers.RespCaptureContext
// @Router       /api/v1/checkout/capture_context [get]
func ApiCaptureContext(client *cybersource.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Query("origin")
		if origin == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing origin"))
			return
		}

		env := cfg.FormEnvironment(c.Query("form_id"))
		key, err := client.GenerateCaptureContext(c.Request.Context(), env, origin)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.OKT(map[string]string{"capture_context": key}))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, svc *checkout.Service, client *cybersource.Client, cfg *config.Config) {
	r.POST("/checkout", ApiCheckout(svc))
	r.GET("/checkout/capture_context", ApiCaptureContext(client, cfg))
}
