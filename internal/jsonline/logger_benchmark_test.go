package jsonline

import "testing"

type discardSink struct{}

func (discardSink) WriteLine([]byte) error { return nil }
func (discardSink) Close() error           { return nil }

func BenchmarkLine_FourPairs(b *testing.B) {
	l := New(discardSink{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.StartLine().
			Append(Str("class")).Append(Str("Generate")).
			Append(Str("event")).Append(Str("done")).
			Append(Str("rank")).Append(Int(3)).
			Append(Str("emitted")).Append(Int(i)).
			Finish()
	}
}

func BenchmarkLine_EscapeHeavyString(b *testing.B) {
	l := New(discardSink{})
	payload := Str("a\\b\"c/d\ne\tf with a longer unescaped tail to amortize")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.StartLine().Append(Str("msg")).Append(payload).Finish()
	}
}

func BenchmarkLine_IntArray(b *testing.B) {
	l := New(discardSink{})
	counts := Ints([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.StartLine().Append(Str("counts")).Append(counts).Finish()
	}
}
