package otel_test

import (
	"context"
	"testing"

	potel "github.com/kofuk/homedns/internal/otel"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TraceContext", func() {
	It("should carry a traceparent through a context", func() {
		traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

		ctx := potel.ContextFromTraceContext(context.Background(), traceparent)
		Expect(potel.TraceContextFromContext(ctx)).To(Equal(traceparent))
	})

	It("should leave the context untouched without a traceparent", func() {
		ctx := potel.ContextFromTraceContext(context.Background(), "")
		Expect(potel.TraceContextFromContext(ctx)).To(BeEmpty())
	})

	It("should stay disabled without an exporter endpoint", func() {
		GinkgoT().Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

		tp, err := potel.InitializeTracer(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(tp).To(BeNil())
	})
})

func Test(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Otel Suite")
}
