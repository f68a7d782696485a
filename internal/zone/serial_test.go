package zone_test

import (
	"time"

	"github.com/kofuk/homedns/internal/zone"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FindSerial", func() {
	It("should find the serial of a single-line SOA", func() {
		content := "@ IN SOA ns.example.com. hostmaster.example.com. 42 3600 900 604800 300\n"

		span, serial, ok := zone.FindSerial(content)
		Expect(ok).To(BeTrue())
		Expect(serial).To(Equal(uint32(42)))
		Expect(content[span.Start:span.End]).To(Equal("42"))
	})

	It("should skip comments and parentheses", func() {
		content := `; SOA in a comment 99
@	IN	SOA	ns1.example.com. hostmaster.example.com. (
			2024010100 ; serial
			3600       ; refresh
			900 604800 300 )
`
		span, serial, ok := zone.FindSerial(content)
		Expect(ok).To(BeTrue())
		Expect(serial).To(Equal(uint32(2024010100)))

		updated := zone.SetSerial(content, span, 2024010101)
		Expect(updated).To(ContainSubstring("2024010101 ; serial"))
		Expect(updated).To(ContainSubstring("; SOA in a comment 99"))
	})

	It("should report a zone without SOA", func() {
		_, _, ok := zone.FindSerial("home IN A 10.0.0.1\n")
		Expect(ok).To(BeFalse())
	})

	It("should not mistake an owner named soa for the record type", func() {
		content := "soa IN A 10.0.0.1\n@ IN SOA ns. host. 5 3600 900 604800 300\n"

		span, serial, ok := zone.FindSerial(content)
		Expect(ok).To(BeTrue())
		Expect(serial).To(Equal(uint32(5)))
		Expect(content[span.Start:span.End]).To(Equal("5"))
	})

	It("should accept a TTL and class before the type", func() {
		content := "soa 1h IN SOA ns. host. 7 3600 900 604800 300\n"

		_, serial, ok := zone.FindSerial(content)
		Expect(ok).To(BeTrue())
		Expect(serial).To(Equal(uint32(7)))
	})

	It("should accept a record that inherits its owner", func() {
		content := "@ IN NS ns.\n\t300 SOA ns. host. 8 3600 900 604800 300\n"

		_, serial, ok := zone.FindSerial(content)
		Expect(ok).To(BeTrue())
		Expect(serial).To(Equal(uint32(8)))
	})

	It("should ignore SOA appearing as record data", func() {
		_, _, ok := zone.FindSerial("home IN CNAME soa\nnote IN TXT soa 1 2 3 4\n")
		Expect(ok).To(BeFalse())
	})

	It("should report a non-numeric serial", func() {
		_, _, ok := zone.FindSerial("@ IN SOA ns. host. SERIAL 1 2 3 4\n")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("NextSerial", func() {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	It("should move a small counter to today's date", func() {
		Expect(zone.NextSerial(7, now)).To(Equal(uint32(2026101900)))
	})

	It("should move an older date to today's date", func() {
		Expect(zone.NextSerial(2024010105, now)).To(Equal(uint32(2026101900)))
	})

	It("should increment within the same day", func() {
		Expect(zone.NextSerial(2026101900, now)).To(Equal(uint32(2026101901)))
		Expect(zone.NextSerial(2026101999, now)).To(Equal(uint32(2026102000)))
	})

	It("should keep increasing a serial ahead of the date", func() {
		Expect(zone.NextSerial(3000000000, now)).To(Equal(uint32(3000000001)))
	})
})
