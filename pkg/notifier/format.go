package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/cathai/invoice-backend/pkg/models"
)

const (
	Placeholder = "N/A"
	separator   = "━━━━━━━━━━━━━━━━━━━━"

	// dd/mm/yyyy and hh:mm, as Vietnamese users read them
	dateLayout     = "02/01/2006"
	dateTimeLayout = "15:04 " + dateLayout
)

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// DetailMessage renders the full invoice request for the chat, in Telegram
// HTML.
func DetailMessage(r models.InvoiceRequest, loc *time.Location, storeName string) string {
	e := html.EscapeString
	var b strings.Builder
	b.WriteString("🧾 <b>YÊU CẦU XUẤT HÓA ĐƠN MỚI</b>\n")
	b.WriteString(separator + "\n\n")
	fmt.Fprintf(&b, "📅 <b>Thời gian:</b> %s\n\n", r.Timestamp.In(loc).Format(dateTimeLayout))
	b.WriteString("👤 <b>THÔNG TIN KHÁCH HÀNG</b>\n")
	fmt.Fprintf(&b, "• Họ tên: %s\n", e(r.Name))
	fmt.Fprintf(&b, "• Điện thoại: %s\n", e(r.Phone))
	fmt.Fprintf(&b, "• Email: %s\n\n", e(r.Email))
	b.WriteString("🏢 <b>THÔNG TIN DOANH NGHIỆP</b>\n")
	fmt.Fprintf(&b, "• MST: <code>%s</code>\n", e(r.Mst))
	fmt.Fprintf(&b, "• Công ty: %s\n", e(orPlaceholder(r.CompanyName)))
	fmt.Fprintf(&b, "• Địa chỉ: %s\n", e(orPlaceholder(r.CompanyAddress)))
	fmt.Fprintf(&b, "• Đại diện: %s\n\n", e(orPlaceholder(r.Representative)))
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "📌 <i>%s</i>", e(storeName))
	return b.String()
}

// PhotoCaption is the short plain text caption sent along with the invoice
// photo, cut to fit Telegram's caption limit.
func PhotoCaption(r models.InvoiceRequest, limit int) string {
	caption := fmt.Sprintf("📷 Ảnh hóa đơn\n👤 %s\n📱 %s\n🏢 MST: %s", r.Name, r.Phone, r.Mst)
	return truncate(caption, limit)
}

// DigestMessage summarises the requests received on day.
func DigestMessage(day time.Time, records []models.InvoiceRequest) string {
	date := day.Format(dateLayout)
	if len(records) == 0 {
		return fmt.Sprintf("📭 Không có yêu cầu xuất hóa đơn nào trong ngày %s", date)
	}

	e := html.EscapeString
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>BÁO CÁO YÊU CẦU HÓA ĐƠN NGÀY %s</b>\n", date)
	fmt.Fprintf(&b, "Tổng số: <b>%d</b> yêu cầu\n", len(records))
	b.WriteString(separator + "\n")
	for i, r := range records {
		fmt.Fprintf(&b, "\n%d. <b>%s</b> - MST: <code>%s</code>\n", i+1, e(orPlaceholder(r.CompanyName)), e(r.Mst))
		fmt.Fprintf(&b, "   👤 %s - 📱 %s", e(r.Name), e(r.Phone))
	}
	return b.String()
}

// truncate cuts s to at most limit UTF-16 code units, which is how Telegram
// counts characters.
func truncate(s string, limit int) string {
	if limit <= 0 || utf16Len(s) <= limit {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		l := utf16.RuneLen(r)
		if n+l > limit-1 {
			break
		}
		b.WriteRune(r)
		n += l
	}
	b.WriteString("…")
	return b.String()
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
