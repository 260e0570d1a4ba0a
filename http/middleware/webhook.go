package middlewares

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/http/controller"
	"github.com/tnqbao/gau-asset-service/service"
	"github.com/tnqbao/gau-asset-service/utils"
)

const maxWebhookBody = 1 << 20

// WebhookSignatureMiddleware checks X-Webhook-Signature over the raw body and
// the envelope timestamp before the handler runs.
func WebhookSignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(service.HeaderWebhookSignature)
		if signature == "" {
			utils.JSON401(c, "Webhook signature is required")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
		if err != nil {
			c.Abort()
			utils.JSON400(c, "Failed to read request body")
			return
		}
		if len(body) > maxWebhookBody {
			utils.JSON413(c, "Webhook body exceeds 1 MiB")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		envelope, err := service.VerifySignature(secret, body, signature, time.Now())
		switch {
		case errors.Is(err, service.ErrSignatureExpired):
			utils.JSON401(c, "Webhook timestamp is outside the allowed window")
			return
		case errors.Is(err, service.ErrInvalidInput):
			c.Abort()
			utils.JSON400(c, "Malformed webhook envelope")
			return
		case err != nil:
			utils.JSON401(c, "Invalid webhook signature")
			return
		}

		c.Set(controller.WebhookEnvelopeKey, envelope)
		c.Next()
	}
}
