package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/scriptd/pkg/script"
)

func TestExampleScriptsParse(t *testing.T) {
	root := filepath.Join("..", "..", "examples", "webroot")
	var count int
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".smscr") {
			return err
		}
		src, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = script.Parse(string(src))
		assert.NoError(t, err, path)
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestExampleWebroot(t *testing.T) {
	_, addr := startServer(t, func(o *Options) {
		o.DocumentRoot = filepath.Join("..", "..", "examples", "webroot")
	})

	fib := get(t, addr, "/scripts/fibonacci.smscr")
	assert.Equal(t, "HTTP/1.1 200 OK", fib.status)
	for _, n := range []string{"<li>0</li>", "<li>1</li>", "<li>13</li>", "<li>34</li>"} {
		assert.Contains(t, fib.body, n)
	}

	trig := get(t, addr, "/scripts/trig.smscr")
	assert.Contains(t, trig.body, "<td>30</td><td>0.5000</td>")
	assert.Contains(t, trig.body, "<td>90</td><td>1.0000</td>")

	calc := get(t, addr, "/calc?a=1000&b=234")
	assert.Contains(t, calc.body, "1000 + 234 = 1234")
	assert.Contains(t, calc.body, "Formatted: 1,234.00")
}
