package engine

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openhrm/escalation-engine/pkg/apiresponses"
	"github.com/openhrm/escalation-engine/pkg/metrics"
	"github.com/openhrm/escalation-engine/pkg/system"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

// Controller exposes the engine over HTTP: a manual run trigger, a manual
// reminder trigger, and a JSON metrics snapshot. The Prometheus text
// exposition endpoint is mounted separately by the API server.
type Controller struct {
	orchestrator *Orchestrator
	dispatcher   *Dispatcher
	recorder     *metrics.Recorder
	log          *zap.SugaredLogger
	middleware   []gin.HandlerFunc
}

// NewController creates the engine API controller. Middleware (rate
// limiting, auth) is applied to every route in the group.
func NewController(orchestrator *Orchestrator, dispatcher *Dispatcher, recorder *metrics.Recorder,
	log *zap.SugaredLogger, middleware ...gin.HandlerFunc,
) *Controller {
	return &Controller{
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		recorder:     recorder,
		log:          log.Named("engine-api"),
		middleware:   middleware,
	}
}

func (ec *Controller) BasePath() string { return "escalation" }

func (ec *Controller) Handlers() []gin.HandlerFunc { return ec.middleware }

func (ec *Controller) Register(rg *gin.RouterGroup) error {
	rg.POST("/run", ec.triggerRun)
	rg.POST("/reminders", ec.sendManualReminder)
	rg.GET("/metrics", ec.getMetricsJSON)
	return nil
}

// triggerRun invokes one scan outside the periodic schedule.
func (ec *Controller) triggerRun(c *gin.Context) {
	result, err := ec.orchestrator.RunOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			apiresponses.RespondConflict(c, err.Error())
			return
		}
		apiresponses.RespondInternalError(c, "trigger run", err, system.GetReqLogger(c, ec.log))
		return
	}
	apiresponses.RespondOK(c, result)
}

// ManualReminderRequest is the body of the ad-hoc reminder trigger.
type ManualReminderRequest struct {
	InstanceID   string `json:"instanceID" binding:"required"`
	ReminderType string `json:"reminderType" binding:"required"`
}

func (ec *Controller) sendManualReminder(c *gin.Context) {
	var req ManualReminderRequest
	if err := c.BindJSON(&req); err != nil {
		return
	}

	kind, err := workflow.ParseReminderKind(req.ReminderType)
	if err != nil {
		apiresponses.RespondBadRequest(c, err.Error())
		return
	}

	if err := ec.dispatcher.SendReminder(c.Request.Context(), req.InstanceID, kind); err != nil {
		reqLog := system.GetReqLogger(c, ec.log)
		reqLog.Errorw("Manual reminder failed", "instance", req.InstanceID, "kind", kind, "error", err)
		switch {
		case errors.Is(err, ErrInstanceNotPending):
			apiresponses.RespondNotFound(c, err.Error())
		case errors.Is(err, ErrDeliveryFailed):
			apiresponses.RespondBadGateway(c, err.Error())
		default:
			apiresponses.RespondInternalError(c, "send reminder", err, reqLog)
		}
		return
	}
	apiresponses.RespondOK(c, gin.H{"status": "sent", "instanceID": req.InstanceID, "reminderType": req.ReminderType})
}

// getMetricsJSON returns all recorder values as a flat mapping. It never
// fails toward the caller; internal errors become a structured payload.
func (ec *Controller) getMetricsJSON(c *gin.Context) {
	snapshot, err := ec.recorder.Snapshot()
	if err != nil {
		ec.log.Errorw("Metrics snapshot failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error(), "metrics": gin.H{}})
		return
	}
	apiresponses.RespondOK(c, gin.H{"metrics": snapshot})
}
