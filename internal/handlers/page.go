package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"refill-pricing/internal/apperror"
	"refill-pricing/internal/calculator"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/models"
)

// Разметка страницы: id элементов совпадают с именами полей формы.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Refill cost calculator</title>
</head>
<body>
<form method="post" action="/calculate">
  <label for="price">Price per refill</label>
  <input type="number" id="price" name="price" min="0" step="0.01" value="{{.Price}}">
  <label for="refills">Number of refills</label>
  <input type="number" id="refills" name="refills" min="0" step="1" value="{{.Refills}}">
  <label><input type="checkbox" id="subscribed" name="subscribed" value="on"{{if .Subscribed}} checked{{end}}> Subscribe and save 25%</label>
  <label><input type="checkbox" id="coupon" name="coupon" value="on"{{if .Coupon}} checked{{end}}> Apply $10 coupon</label>
  <button type="submit" id="calculate">Calculate</button>
</form>
<p>Total cost: <output id="cost" for="price refills subscribed coupon">{{.Cost}}</output></p>
{{if .Error}}<p id="error" role="alert" data-field="{{.Field}}">{{.Error}}</p>{{end}}
</body>
</html>
`))

// pageView содержит данные для шаблона страницы
type pageView struct {
	Price      string
	Refills    string
	Subscribed bool
	Coupon     bool
	Cost       string
	Error      string
	Field      string
}

// PageHandler отдаёт страницу калькулятора и обрабатывает отправку формы.
type PageHandler struct {
	quoteService QuoteService
	log          *logger.Logger
}

// NewPageHandler создает обработчик страницы
func NewPageHandler(quoteService QuoteService, log *logger.Logger) *PageHandler {
	return &PageHandler{
		quoteService: quoteService,
		log:          log,
	}
}

// Index показывает пустую форму с начальной стоимостью.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.render(w, http.StatusOK, pageView{Cost: h.quoteService.InitialDisplay()})
}

// Calculate обрабатывает нажатие #calculate: считает стоимость и перерисовывает страницу.
func (h *PageHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	req := &models.CreateQuoteRequest{
		Price:      r.PostForm.Get(calculator.FieldPrice),
		Refills:    r.PostForm.Get(calculator.FieldRefills),
		Subscribed: r.PostForm.Get(calculator.FieldSubscribed) != "",
		Coupon:     r.PostForm.Get(calculator.FieldCoupon) != "",
	}
	view := pageView{
		Price:      req.Price,
		Refills:    req.Refills,
		Subscribed: req.Subscribed,
		Coupon:     req.Coupon,
	}

	quote, err := h.quoteService.CreateQuote(r.Context(), req)
	if err != nil {
		view.Cost = h.quoteService.InitialDisplay()
		status := http.StatusInternalServerError
		view.Error = "Failed to calculate cost"
		if apperror.Is(err, apperror.KindValidation) {
			status = http.StatusBadRequest
			view.Error = err.Error()
			view.Field = apperror.FieldOf(err)
		} else {
			h.log.WithError(err).Error("Failed to calculate cost from form")
		}
		h.render(w, status, view)
		return
	}

	view.Cost = quote.Display
	h.render(w, http.StatusOK, view)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.log.WithError(err).Error("Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
