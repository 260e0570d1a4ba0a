package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-asset-service/service"
	"github.com/tnqbao/gau-asset-service/utils"
)

// WebhookEnvelopeKey holds the envelope verified by WebhookSignatureMiddleware.
const WebhookEnvelopeKey = "webhook_envelope"

func (ctrl *Controller) VerifyWebhook(c *gin.Context) {
	v, ok := c.Get(WebhookEnvelopeKey)
	envelope, isEnvelope := v.(*service.WebhookEnvelope)
	if !ok || !isEnvelope {
		utils.JSON401(c, "Webhook signature was not verified")
		return
	}
	utils.JSON200(c, gin.H{
		"verified":  true,
		"event":     envelope.Event,
		"timestamp": envelope.Timestamp,
		"data":      envelope.Data,
	})
}
