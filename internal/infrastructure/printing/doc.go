// Package printing renders sale receipts.
//
// HTML comes from an html/template sized for thermal receipt paper. PDF output
// loads that HTML into headless Chrome over the DevTools protocol and prints it
// on a single continuous page of the configured paper width.
//
//	pdf, err := printing.NewChromedpRenderer(printing.ChromedpConfig{RemoteURL: "ws://chrome:9222"}, logger)
//	if err != nil {
//	    return err
//	}
//	receipts, err := printing.NewReceiptRenderer(pdf, printing.ReceiptConfig{PaperWidthMM: 80}, logger)
//	html, err := receipts.RenderHTML(ctx, data)
package printing
