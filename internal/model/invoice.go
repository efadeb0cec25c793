package model

// AgingBucket classifies an open invoice by days outstanding.
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket31To60  AgingBucket = "days_31_60"
	Bucket61To90  AgingBucket = "days_61_90"
	Bucket90Plus  AgingBucket = "days_90_plus"
)

// AgingBuckets lists buckets from youngest to oldest.
var AgingBuckets = []AgingBucket{BucketCurrent, Bucket31To60, Bucket61To90, Bucket90Plus}

// BucketFor returns the aging bucket for a day count.
// Boundaries are inclusive: 30 is current, 60 is 31-60, 90 is 61-90.
func BucketFor(days int) AgingBucket {
	switch {
	case days <= 30:
		return BucketCurrent
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// Label returns a short human label for the bucket.
func (b AgingBucket) Label() string {
	switch b {
	case BucketCurrent:
		return "Current"
	case Bucket31To60:
		return "31-60"
	case Bucket61To90:
		return "61-90"
	case Bucket90Plus:
		return "90+"
	default:
		return string(b)
	}
}

// ARInvoice is one receivable row after coercion.
type ARInvoice struct {
	InvoiceNo           string
	CustomerName        string
	ProjectManager      string
	JobNo               string
	InvoiceDate         string
	DueDate             string
	InvoiceAmount       float64
	CalculatedAmountDue float64
	Retainage           float64
	DaysOutstanding     int
}

// APInvoice is one payable row after coercion.
type APInvoice struct {
	InvoiceNo        string
	VendorName       string
	ProjectManager   string
	JobNo            string
	InvoiceDate      string
	DueDate          string
	InvoiceAmount    float64
	RemainingBalance float64
	Retainage        float64
	DaysOutstanding  int
}

// ARInvoiceMetric is an open receivable with aging applied.
type ARInvoiceMetric struct {
	InvoiceNo           string      `json:"invoice_no"`
	CustomerName        string      `json:"customer_name"`
	ProjectManager      string      `json:"project_manager"`
	JobNo               string      `json:"job_no"`
	InvoiceDate         string      `json:"invoice_date"`
	DueDate             string      `json:"due_date"`
	InvoiceAmount       float64     `json:"invoice_amount"`
	CalculatedAmountDue float64     `json:"calculated_amount_due"`
	Retainage           float64     `json:"retainage"`
	Collectible         float64     `json:"collectible"`
	DaysOutstanding     int         `json:"days_outstanding"`
	AgingBucket         AgingBucket `json:"aging_bucket"`
	TotalDue            float64     `json:"total_due"`
}

// APInvoiceMetric is an open payable with aging applied.
type APInvoiceMetric struct {
	InvoiceNo         string      `json:"invoice_no"`
	VendorName        string      `json:"vendor_name"`
	ProjectManager    string      `json:"project_manager"`
	JobNo             string      `json:"job_no"`
	InvoiceDate       string      `json:"invoice_date"`
	DueDate           string      `json:"due_date"`
	InvoiceAmount     float64     `json:"invoice_amount"`
	RemainingBalance  float64     `json:"remaining_balance"`
	Retainage         float64     `json:"retainage"`
	AmountExRetainage float64     `json:"amount_ex_retainage"`
	DaysOutstanding   int         `json:"days_outstanding"`
	AgingBucket       AgingBucket `json:"aging_bucket"`
}
