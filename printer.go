// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printer writes the verbose per-iteration progress table: iteration
// count, objective value, the largest inequality violation, the stopping
// estimator E_k, and whether the previous iteration took a step or only
// shrank its parameters.
type printer struct {
	w           io.Writer
	headingEach int
	sinceHead   int
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, headingEach: 30, sinceHead: 31}
}

const nPrinterCols = 5

var printerHeadings = [nPrinterCols]string{"Iter", "f(x)", "max(gI)", "E_k", "Step"}

// record prints one row. Each row's step column reports the prior
// iteration's step/no-step decision, printed before the current
// iteration's own decision is computed, so step is nil (printed as NaN)
// on the very first row.
func (p *printer) record(iter int, fx, maxGI, ek float64, step *bool) {
	stepStr := "NaN"
	if step != nil {
		stepStr = strconv.FormatBool(*step)
	}
	values := [nPrinterCols]string{
		strconv.Itoa(iter),
		fmt.Sprintf("%g", fx),
		fmt.Sprintf("%g", maxGI),
		fmt.Sprintf("%g", ek),
		stepStr,
	}

	var widths [nPrinterCols]int
	for i := range widths {
		widths[i] = len(printerHeadings[i])
		if len(values[i]) > widths[i] {
			widths[i] = len(values[i])
		}
	}

	if p.sinceHead > p.headingEach {
		p.sinceHead = 0
		fmt.Fprint(p.w, "\n"+constructRow(printerHeadings, widths))
	}
	p.sinceHead++
	fmt.Fprint(p.w, constructRow(values, widths))
}

func constructRow(values [nPrinterCols]string, widths [nPrinterCols]int) string {
	var b strings.Builder
	for i, v := range values {
		b.WriteString(padString(v, widths[i]))
		if i != nPrinterCols-1 {
			b.WriteString("\t")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func padString(s string, l int) string {
	if len(s) >= l {
		return s
	}
	return s + strings.Repeat(" ", l-len(s))
}
