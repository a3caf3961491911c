package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/uploads"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const receiptTimeout = 45 * time.Second

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Receipt {{.SessionID}}</title>
<style>body{font-family:sans-serif;margin:48px}td{padding:4px 12px}</style>
</head>
<body>
<h1>Payment Receipt</h1>
<table>
<tr><td>Receipt</td><td>{{.SessionID}}</td></tr>
<tr><td>Student</td><td>{{.StudentName}} ({{.StudentEmail}})</td></tr>
<tr><td>Mentor</td><td>{{.MentorName}}</td></tr>
<tr><td>Session date</td><td>{{.SessionDate}}</td></tr>
<tr><td>Duration</td><td>{{.Duration}} minutes</td></tr>
<tr><td>Amount</td><td>{{.Amount}} {{.Currency}}</td></tr>
<tr><td>Checkout</td><td>{{.PaymentID}}</td></tr>
<tr><td>Issued</td><td>{{.IssuedAt}}</td></tr>
</table>
</body>
</html>`))

type RawUploader interface {
	UploadRaw(ctx context.Context, data []byte, folder, publicID string) (string, error)
}

// ReceiptService renders a PDF receipt for a paid session and uploads it.
type ReceiptService struct {
	uploader RawUploader
	render   func(ctx context.Context, html string) ([]byte, error)
	now      func() time.Time
}

func NewReceiptService(uploader RawUploader) *ReceiptService {
	return &ReceiptService{uploader: uploader, render: generatePDFFromHTML, now: time.Now}
}

func (s *ReceiptService) IssueReceipt(ctx context.Context, session *models.Session, mentor *models.Mentor) (string, error) {
	if session.Status != models.SessionCompleted {
		return "", fmt.Errorf("%w: receipts are issued for completed sessions only", ErrConflict)
	}

	html, err := renderReceiptHTML(session, mentor, s.now())
	if err != nil {
		return "", fmt.Errorf("render receipt html: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	pdf, err := s.render(ctx, html)
	if err != nil {
		return "", fmt.Errorf("render receipt pdf: %w", err)
	}
	return s.uploader.UploadRaw(ctx, pdf, uploads.FolderReceipts, "receipt_"+session.ID.String())
}

func renderReceiptHTML(session *models.Session, mentor *models.Mentor, issued time.Time) (string, error) {
	currency := ""
	if session.Currency != nil {
		currency = strings.ToUpper(*session.Currency)
	}
	paymentID := ""
	if session.PaymentID != nil {
		paymentID = *session.PaymentID
	}

	data := struct {
		SessionID    string
		StudentName  string
		StudentEmail string
		MentorName   string
		SessionDate  string
		Duration     int
		Amount       string
		Currency     string
		PaymentID    string
		IssuedAt     string
	}{
		SessionID:    session.ID.String(),
		StudentName:  session.StudentName,
		StudentEmail: session.StudentEmail,
		MentorName:   mentor.Name,
		SessionDate:  session.ScheduledAt.Format("January 2, 2006 15:04 MST"),
		Duration:     session.DurationMinutes,
		Amount:       fmt.Sprintf("%.2f", session.Amount()),
		Currency:     currency,
		PaymentID:    paymentID,
		IssuedAt:     issued.Format("January 2, 2006"),
	}

	var rendered bytes.Buffer
	if err := receiptTemplate.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

func generatePDFFromHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
