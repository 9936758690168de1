package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/domain"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/json_types"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/in"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

type SlotController struct {
	useCase in.SlotUseCase
	logger  out.LoggerPort
}

func NewSlotController(useCase in.SlotUseCase, logger out.LoggerPort) *SlotController {
	return &SlotController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *SlotController) RegisterRoutes(api *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	slots := api.Group("/slots", middlewares...)
	{
		slots.GET("/week/:monday", c.getWeeklyAvailability)
		slots.POST("/book", c.bookSlot)
	}
}

type AvailableSlotResponse struct {
	Start       json_types.DateTime `json:"start"`
	End         json_types.DateTime `json:"end"`
	DayOfWeek   string              `json:"dayOfWeek"`
	IsAvailable bool                `json:"isAvailable"`
}

type WeeklyAvailabilityResponse struct {
	Success    bool                    `json:"success"`
	FacilityID string                  `json:"facilityId,omitempty"`
	Data       []AvailableSlotResponse `json:"data"`
	Message    string                  `json:"message,omitempty"`
	Errors     []string                `json:"errors,omitempty"`
}

type PatientRequest struct {
	Name       string `json:"name"`
	SecondName string `json:"secondName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type BookSlotRequest struct {
	FacilityID string          `json:"facilityId"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	Comments   string          `json:"comments"`
	Patient    *PatientRequest `json:"patient"`
}

func (r BookSlotRequest) toDomain() *domain.BookingRequest {
	request := &domain.BookingRequest{
		FacilityID: r.FacilityID,
		Start:      r.Start,
		End:        r.End,
		Comments:   r.Comments,
	}
	if r.Patient != nil {
		request.Patient = &domain.Patient{
			Name:       r.Patient.Name,
			SecondName: r.Patient.SecondName,
			Email:      r.Patient.Email,
			Phone:      r.Patient.Phone,
		}
	}
	return request
}

func (c *SlotController) getWeeklyAvailability(ctx *gin.Context) {
	result := c.useCase.GetWeeklyAvailability(ctx.Request.Context(), ctx.Param("monday"))

	response := WeeklyAvailabilityResponse{
		Success:    result.Success,
		FacilityID: result.Data.FacilityID,
		Data:       make([]AvailableSlotResponse, 0, len(result.Data.Slots)),
		Message:    result.Message,
		Errors:     result.Errors,
	}
	for _, slot := range result.Data.Slots {
		response.Data = append(response.Data, AvailableSlotResponse{
			Start:       json_types.NewDateTime(slot.Start),
			End:         json_types.NewDateTime(slot.End),
			DayOfWeek:   slot.DayOfWeek,
			IsAvailable: slot.IsAvailable,
		})
	}

	ctx.JSON(readStatus(result.Kind), response)
}

func (c *SlotController) bookSlot(ctx *gin.Context) {
	var req BookSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn("http.slots.book.bind_failed", out.LogFields{
			"requestId": ctx.GetString(contextKeyRequestID),
			"error":     err.Error(),
		})
		ctx.JSON(http.StatusBadRequest, domain.Fail[bool](domain.ErrorKindInvalidInput,
			"Invalid booking request body", err.Error()))
		return
	}

	result := c.useCase.BookSlot(ctx.Request.Context(), req.toDomain())

	ctx.JSON(writeStatus(result.Kind), result)
}

// readStatus: любая ошибка чтения, включая некорректный понедельник, это 500
func readStatus(kind domain.ErrorKind) int {
	if kind == domain.ErrorKindNone {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

func writeStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindNone:
		return http.StatusOK
	case domain.ErrorKindInvalidInput, domain.ErrorKindRejected:
		return http.StatusBadRequest
	case domain.ErrorKindUpstreamTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
