package patient

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-records/internal/handler"
	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
)

// Handler serves the patient collection the way a json-server resource does:
// bare JSON bodies, {} with 404 for a missing id.
type Handler struct {
	store repository.PatientStore
	log   zerolog.Logger
}

func NewHandler(store repository.PatientStore, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListPatients)
	r.POST("", h.CreatePatient)
	r.GET("/:id", h.GetPatient)
	r.PATCH("/:id", h.UpdatePatient)
	r.DELETE("/:id", h.DeletePatient)
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filters model.PatientFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		handler.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	patients, err := h.store.List(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	patient, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var patient model.Patient
	if err := c.ShouldBindJSON(&patient); err != nil {
		handler.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.store.Create(c.Request.Context(), &patient)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info().Int("id", int(created.ID)).Msg("patient created")
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch model.PatientPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.store.Patch(c.Request.Context(), id, &patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info().Int("id", int(id)).Msg("patient updated")
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info().Int("id", int(id)).Msg("patient deleted")
	c.JSON(http.StatusOK, gin.H{})
}

// parseID answers 404 for ids that cannot name a record.
func parseID(c *gin.Context) (model.PatientID, bool) {
	n, err := strconv.Atoi(c.Param("id"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusNotFound, gin.H{})
		return 0, false
	}
	return model.PatientID(n), true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if handler.RespondError(c, err) {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("store failure")
	}
}
