package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portal-rpa/internal/domain"
	"github.com/tbourn/portal-rpa/internal/http/middleware"
)

// CompanyRequest is the payload of a company enquiry.
type CompanyRequest struct {
	MessageID      string `json:"message_id" example:"00001FTICLI112025"`
	TradeName      string `json:"trade_name" example:"PT Maju Jaya"`
	Address        string `json:"address" example:"Jl. Sudirman No. 1"`
	SubDistrict    string `json:"sub_district" example:"Karet Tengsin"`
	District       string `json:"district" example:"Tanah Abang"`
	CityCode       string `json:"city_code" example:"0394"`
	PostalCode     string `json:"postal_code" example:"10220"`
	BusinessNumber string `json:"business_number" example:"012345678901000"`
	Phone          string `json:"phone" example:"0215551234"`
}

func (r CompanyRequest) submission() domain.Submission {
	return domain.CompanySubmission{
		MessageID:      r.MessageID,
		TradeName:      r.TradeName,
		Address:        r.Address,
		SubDistrict:    r.SubDistrict,
		District:       r.District,
		CityCode:       r.CityCode,
		PostalCode:     r.PostalCode,
		BusinessNumber: r.BusinessNumber,
		Phone:          r.Phone,
	}.Submission()
}

// IndividualRequest is the payload of an individual enquiry.
type IndividualRequest struct {
	MessageID    string `json:"message_id" example:"00002FTICLI112025"`
	Name         string `json:"name" example:"Budi Santoso"`
	BirthDate    string `json:"birth_date" example:"1990/05/17"`
	Gender       string `json:"gender" example:"M"`
	Address      string `json:"address" example:"Jl. Melati 7"`
	SubDistrict  string `json:"sub_district" example:"Menteng"`
	District     string `json:"district" example:"Menteng"`
	City         string `json:"city" example:"0394"`
	PostalCode   string `json:"postal_code" example:"10310"`
	IdentityType string `json:"identity_type" example:"1"`
	IDNumber     string `json:"id_number" example:"3171234567890001"`
	PhoneNumber  string `json:"phone_number" example:"081234567890"`
}

func (r IndividualRequest) submission() domain.Submission {
	return domain.IndividualSubmission{
		MessageID:    r.MessageID,
		Name:         r.Name,
		BirthDate:    r.BirthDate,
		Gender:       r.Gender,
		Address:      r.Address,
		SubDistrict:  r.SubDistrict,
		District:     r.District,
		City:         r.City,
		PostalCode:   r.PostalCode,
		IdentityType: r.IdentityType,
		IDNumber:     r.IDNumber,
		PhoneNumber:  r.PhoneNumber,
	}.Submission()
}

// SubmissionResponse reports the published artifacts of a submission.
type SubmissionResponse struct {
	MessageID    string `json:"message_id" example:"00001FTICLI112025"`
	Kind         string `json:"kind" example:"company"`
	Attempts     int    `json:"attempts" example:"1"`
	SnapshotLink string `json:"snapshot_link" example:"https://drive.google.com/file/d/abc/view"`
	ReportLink   string `json:"report_link" example:"https://drive.google.com/file/d/def/view"`
	Message      string `json:"message" example:"Company report generated and uploaded successfully"`
}

// SubmitCompany godoc
// @ID          submitCompany
// @Summary     Generate a company report
// @Description Logs into the portal, files a company enquiry, and publishes the
// @Description result page and PDF report. Retries with exponential backoff.
// @Description A repeated Idempotency-Key replays the stored result.
// @Tags        Submissions
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string                      false  "Key for safe retries"
// @Param       body             body      handlers.CompanyRequest     true   "Company enquiry"
// @Success     200              {object}  handlers.SubmissionResponse
// @Failure     400              {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     409              {object}  handlers.ErrorResponse  "Idempotency key reused"
// @Failure     500              {object}  handlers.ErrorResponse  "All attempts failed"
// @Router      /submissions/company [post]
func (h *Handlers) SubmitCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.submit(c, req.submission())
}

// SubmitIndividual godoc
// @ID          submitIndividual
// @Summary     Generate an individual report
// @Description Same flow as the company endpoint for an individual enquiry.
// @Tags        Submissions
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string                        false  "Key for safe retries"
// @Param       body             body      handlers.IndividualRequest    true   "Individual enquiry"
// @Success     200              {object}  handlers.SubmissionResponse
// @Failure     400              {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     409              {object}  handlers.ErrorResponse  "Idempotency key reused"
// @Failure     500              {object}  handlers.ErrorResponse  "All attempts failed"
// @Router      /submissions/individual [post]
func (h *Handlers) SubmitIndividual(c *gin.Context) {
	var req IndividualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.submit(c, req.submission())
}

// submit runs sub detached from client cancellation: once the portal has
// been driven, the artifacts are published even if the caller hung up.
func (h *Handlers) submit(c *gin.Context, sub domain.Submission) {
	ctx := context.WithoutCancel(c.Request.Context())
	key, _ := middleware.GetIdempotencyKey(c)

	out, err := h.subs.Submit(ctx, sub, key)
	if err != nil {
		failService(c, err, ErrCodeSubmissionFailed)
		return
	}
	if out.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, SubmissionResponse{
		MessageID:    out.MessageID,
		Kind:         string(out.Kind),
		Attempts:     out.Attempts,
		SnapshotLink: out.SnapshotLink,
		ReportLink:   out.ReportLink,
		Message:      out.Message(),
	})
}
