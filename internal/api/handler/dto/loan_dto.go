package dto

import (
	"fmt"
	"strings"
	"time"

	"goldloan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type GoldItemRequest struct {
	Description string `json:"description"`
	GrossWeight string `json:"grossWeight"`
	NetWeight   string `json:"netWeight"`
}

type OriginateLoanRequest struct {
	CustomerID       string            `json:"customerId"`
	Principal        string            `json:"principal"`
	TermMonths       int               `json:"termMonths"`
	InterestRate     float64           `json:"interestRate"`
	DisbursementDate string            `json:"disbursementDate"`
	GoldItems        []GoldItemRequest `json:"goldItems"`
}

func (r *OriginateLoanRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("customerId cannot be empty")
	}
	if _, err := decimal.NewFromString(r.Principal); err != nil {
		return fmt.Errorf("principal must be a valid number")
	}
	if r.TermMonths <= 0 {
		return fmt.Errorf("termMonths must be positive")
	}
	if r.InterestRate <= 0 {
		return fmt.Errorf("interestRate must be positive")
	}
	if _, err := time.Parse(dateLayout, r.DisbursementDate); err != nil {
		return fmt.Errorf("disbursementDate must be yyyy-mm-dd")
	}
	for i, item := range r.GoldItems {
		if _, err := decimal.NewFromString(item.GrossWeight); err != nil {
			return fmt.Errorf("goldItems[%d].grossWeight must be a valid number", i)
		}
		if _, err := decimal.NewFromString(item.NetWeight); err != nil {
			return fmt.Errorf("goldItems[%d].netWeight must be a valid number", i)
		}
	}
	return nil
}

func (r *OriginateLoanRequest) ToInput() loan.OriginateLoanInput {
	principal, _ := decimal.NewFromString(r.Principal)
	disbursed, _ := time.Parse(dateLayout, r.DisbursementDate)
	items := make([]loan.GoldItem, 0, len(r.GoldItems))
	for _, item := range r.GoldItems {
		gross, _ := decimal.NewFromString(item.GrossWeight)
		net, _ := decimal.NewFromString(item.NetWeight)
		items = append(items, loan.GoldItem{
			Description: item.Description,
			GrossWeight: gross,
			NetWeight:   net,
		})
	}
	return loan.OriginateLoanInput{
		CustomerID:       r.CustomerID,
		Principal:        principal,
		TermMonths:       r.TermMonths,
		InterestRate:     r.InterestRate,
		DisbursementDate: disbursed,
		GoldItems:        items,
	}
}

type RecordPaymentRequest struct {
	Amount        string  `json:"amount"`
	Method        string  `json:"method"`
	TransactionID *string `json:"transactionId,omitempty"`
	BankName      *string `json:"bankName,omitempty"`
	EnteredBy     string  `json:"enteredBy"`
}

func (r *RecordPaymentRequest) Validate() error {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return fmt.Errorf("amount must be a valid number")
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if strings.TrimSpace(r.Method) == "" {
		return fmt.Errorf("method cannot be empty")
	}
	if strings.TrimSpace(r.EnteredBy) == "" {
		return fmt.Errorf("enteredBy cannot be empty")
	}
	return nil
}

func (r *RecordPaymentRequest) ToInput() loan.RecordPaymentInput {
	amount, _ := decimal.NewFromString(r.Amount)
	return loan.RecordPaymentInput{
		Amount:        amount,
		Method:        r.Method,
		TransactionID: r.TransactionID,
		BankName:      r.BankName,
		EnteredBy:     r.EnteredBy,
	}
}

type UpgradeRateRequest struct {
	Reason string `json:"reason"`
}

func (r *UpgradeRateRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("reason cannot be empty")
	}
	return nil
}

type ScheduleGoldReturnRequest struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

func (r *ScheduleGoldReturnRequest) Validate() error {
	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		return fmt.Errorf("date must be yyyy-mm-dd")
	}
	return nil
}

func (r *ScheduleGoldReturnRequest) ParsedDate() time.Time {
	d, _ := time.Parse(dateLayout, r.Date)
	return d
}

type MarkGoldReturnedRequest struct {
	ReturnedBy string `json:"returnedBy"`
	Notes      string `json:"notes"`
}

func (r *MarkGoldReturnedRequest) Validate() error {
	if strings.TrimSpace(r.ReturnedBy) == "" {
		return fmt.Errorf("returnedBy cannot be empty")
	}
	return nil
}

type GoldReturnReminderRequest struct {
	Type    string `json:"type"`
	SentTo  string `json:"sentTo"`
	Message string `json:"message"`
}

func (r *GoldReturnReminderRequest) Validate() error {
	switch loan.ReminderType(strings.ToUpper(r.Type)) {
	case loan.ReminderInitial, loan.ReminderFollowup, loan.ReminderUrgent, loan.ReminderFinal:
	default:
		return fmt.Errorf("type must be one of initial, followup, urgent, final")
	}
	if strings.TrimSpace(r.SentTo) == "" {
		return fmt.Errorf("sentTo cannot be empty")
	}
	return nil
}

func (r *GoldReturnReminderRequest) ReminderType() loan.ReminderType {
	return loan.ReminderType(strings.ToUpper(r.Type))
}

type AuctionActionRequest struct {
	Date  string `json:"date,omitempty"`
	Notes string `json:"notes"`
	By    string `json:"by"`
}

func (r *AuctionActionRequest) Validate(requireDate bool) error {
	if strings.TrimSpace(r.By) == "" {
		return fmt.Errorf("by cannot be empty")
	}
	if requireDate {
		if _, err := time.Parse(dateLayout, r.Date); err != nil {
			return fmt.Errorf("date must be yyyy-mm-dd")
		}
	}
	return nil
}

func (r *AuctionActionRequest) ParsedDate() time.Time {
	d, _ := time.Parse(dateLayout, r.Date)
	return d
}

type InstallmentResponse struct {
	Number     int    `json:"number"`
	DueDate    string `json:"dueDate"`
	Amount     string `json:"amount"`
	AmountPaid string `json:"amountPaid"`
	Status     string `json:"status"`
}

type PaymentResponse struct {
	PaymentID         string  `json:"paymentId"`
	Amount            string  `json:"amount"`
	Date              string  `json:"date"`
	Method            string  `json:"method"`
	TransactionID     *string `json:"transactionId,omitempty"`
	InstallmentNumber int     `json:"installmentNumber"`
	RemainingBalance  string  `json:"remainingBalance"`
	Status            string  `json:"status"`
}

type LoanResponse struct {
	LoanID               string                `json:"loanId"`
	CustomerID           string                `json:"customerId"`
	Principal            string                `json:"principal"`
	TermMonths           int                   `json:"termMonths"`
	OriginalInterestRate float64               `json:"originalInterestRate"`
	CurrentInterestRate  float64               `json:"currentInterestRate"`
	CurrentUpgradeLevel  int                   `json:"currentUpgradeLevel"`
	DisbursementDate     string                `json:"disbursementDate"`
	Status               string                `json:"status"`
	ClosedDate           *string               `json:"closedDate,omitempty"`
	TotalPayment         string                `json:"totalPayment"`
	TotalPaid            string                `json:"totalPaid"`
	RemainingBalance     string                `json:"remainingBalance"`
	GoldReturnStatus     string                `json:"goldReturnStatus,omitempty"`
	AuctionStatus        string                `json:"auctionStatus"`
	Installments         []InstallmentResponse `json:"installments,omitempty"`
	Payments             []PaymentResponse     `json:"payments,omitempty"`
}

func NewLoanResponse(l *loan.Loan, includeSchedule bool) LoanResponse {
	if l == nil {
		return LoanResponse{}
	}

	resp := LoanResponse{
		LoanID:               l.ID,
		CustomerID:           l.CustomerID,
		Principal:            l.Principal.StringFixed(0),
		TermMonths:           l.TermMonths,
		OriginalInterestRate: l.OriginalInterestRate,
		CurrentInterestRate:  l.CurrentInterestRate,
		CurrentUpgradeLevel:  l.CurrentUpgradeLevel,
		DisbursementDate:     l.DisbursementDate.Format(dateLayout),
		Status:               string(l.Status),
		TotalPayment:         l.TotalPayment.StringFixed(0),
		TotalPaid:            l.TotalPaid.StringFixed(0),
		RemainingBalance:     l.RemainingBalance.StringFixed(0),
		GoldReturnStatus:     string(l.GoldReturnStatus),
		AuctionStatus:        string(l.AuctionStatus),
	}
	if l.ClosedDate != nil {
		closed := l.ClosedDate.Format(dateLayout)
		resp.ClosedDate = &closed
	}
	if includeSchedule {
		for _, inst := range l.Installments {
			resp.Installments = append(resp.Installments, InstallmentResponse{
				Number:     inst.Number,
				DueDate:    inst.DueDate.Format(dateLayout),
				Amount:     inst.Amount.StringFixed(0),
				AmountPaid: inst.AmountPaid.StringFixed(0),
				Status:     string(inst.Status),
			})
		}
		for _, p := range l.Payments {
			resp.Payments = append(resp.Payments, NewPaymentResponse(&p))
		}
	}
	return resp
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	if p == nil {
		return PaymentResponse{}
	}
	return PaymentResponse{
		PaymentID:         p.ID,
		Amount:            p.Amount.StringFixed(0),
		Date:              p.Date.Format(time.RFC3339),
		Method:            p.Method,
		TransactionID:     p.TransactionID,
		InstallmentNumber: p.InstallmentNumber,
		RemainingBalance:  p.RemainingBalanceSnapshot.StringFixed(0),
		Status:            string(p.Status),
	}
}

type EarlyRepaymentResponse struct {
	EffectiveDate      string `json:"effectiveDate"`
	EffectiveDays      int    `json:"effectiveDays"`
	TotalInterest      string `json:"totalInterest"`
	Rebate             string `json:"rebate"`
	TotalDue           string `json:"totalDue"`
	GracePeriodApplied bool   `json:"gracePeriodApplied"`
	RebateApplied      bool   `json:"rebateApplied"`
	MinDaysApplied     bool   `json:"minDaysApplied"`
	MinInterestApplied bool   `json:"minInterestApplied"`
}

func NewEarlyRepaymentResponse(e *loan.EarlyRepayment) EarlyRepaymentResponse {
	if e == nil {
		return EarlyRepaymentResponse{}
	}
	return EarlyRepaymentResponse{
		EffectiveDate:      e.EffectiveDate.Format(dateLayout),
		EffectiveDays:      e.EffectiveDays,
		TotalInterest:      e.TotalInterest.StringFixed(0),
		Rebate:             e.Rebate.StringFixed(0),
		TotalDue:           e.TotalDue.StringFixed(0),
		GracePeriodApplied: e.GracePeriodApplied,
		RebateApplied:      e.RebateApplied,
		MinDaysApplied:     e.MinDaysApplied,
		MinInterestApplied: e.MinInterestApplied,
	}
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
