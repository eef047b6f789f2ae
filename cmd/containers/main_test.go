package main

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// cookieJar returns a one-page archive holding example.com / session.
func cookieJar() []byte {
	le := binary.LittleEndian

	strs := new(bytes.Buffer)
	offsets := make([]int32, 5)
	pos := int32(56)

	for i, s := range []string{"example.com", "session", "/", "abc123"} {
		offsets[i] = pos
		strs.WriteString(s)
		strs.WriteByte(0)
		pos += int32(len(s)) + 1
	}

	rec := new(bytes.Buffer)
	binary.Write(rec, le, pos)
	binary.Write(rec, le, int32(0))
	binary.Write(rec, le, int32(5))
	binary.Write(rec, le, int32(0))
	binary.Write(rec, le, offsets)
	binary.Write(rec, le, int32(0))
	binary.Write(rec, le, math.Float64bits(7e8))
	binary.Write(rec, le, math.Float64bits(6.9e8))
	rec.Write(strs.Bytes())

	page := new(bytes.Buffer)
	page.Write([]byte{0x00, 0x00, 0x01, 0x00})
	binary.Write(page, le, int32(1))
	binary.Write(page, le, int32(16))
	binary.Write(page, le, int32(0))
	page.Write(rec.Bytes())

	out := new(bytes.Buffer)
	out.WriteString("cook")
	binary.Write(out, binary.BigEndian, int32(1))
	binary.Write(out, binary.BigEndian, int32(page.Len()))
	out.Write(page.Bytes())

	return out.Bytes()
}

// appendLog returns a log with a single live entry.
func appendLog(payload string) []byte {
	le := binary.LittleEndian
	out := new(bytes.Buffer)

	out.WriteString("SEGB")
	binary.Write(out, le, int32(1))
	binary.Write(out, le, math.Float64bits(7e8))
	out.Write(make([]byte, 16))

	binary.Write(out, le, crc32.ChecksumIEEE([]byte(payload)))
	binary.Write(out, le, int32(0))
	out.WriteString(payload)

	end := int32(out.Len() - 32)
	for out.Len()%4 != 0 {
		out.WriteByte(0)
	}

	binary.Write(out, le, end)
	binary.Write(out, le, int32(1))
	binary.Write(out, le, math.Float64bits(7e8))

	return out.Bytes()
}

// setup points the command at a memory filesystem holding a cookie jar, a
// log and a file that is neither.
func setup(t *testing.T) (fs afero.Fs, out *bytes.Buffer, errOut *bytes.Buffer) {
	t.Helper()

	fs = afero.NewMemMapFs()
	out = new(bytes.Buffer)
	errOut = new(bytes.Buffer)

	_ = afero.WriteFile(fs, "/in/Cookies.binarycookies", cookieJar(), 0o644)
	_ = afero.WriteFile(fs, "/in/App.InFocus", appendLog("com.apple.Safari"), 0o644)
	_ = afero.WriteFile(fs, "/in/notes.txt", []byte("not a container"), 0o644)

	oldFs, oldOut, oldErr, oldProgress := appFs, stdout, stderr, progressOut
	appFs, stdout, stderr, progressOut = fs, out, errOut, io.Discard

	t.Cleanup(func() {
		appFs, stdout, stderr, progressOut = oldFs, oldOut, oldErr, oldProgress
	})

	return fs, out, errOut
}

func TestDecodeToStdout(t *testing.T) {
	_, out, errOut := setup(t)

	if err := Execute([]string{"containers", "decode", "-f", "netscape", "/in/Cookies.binarycookies"}); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(out.String(), "# Netscape HTTP Cookie File\n#HttpOnly_example.com\tFALSE\t/\tTRUE\t") {
		t.Fatalf("incorrect output\n%s", out.String())
	}

	if !strings.Contains(errOut.String(), "[INFO] /in/Cookies.binarycookies: cookiejar") {
		t.Fatalf("missing info log\n%s", errOut.String())
	}

	if strings.Contains(errOut.String(), "abc123") {
		t.Fatal("a cookie value reached the log")
	}
}

func TestDecodeBatch(t *testing.T) {
	fs, out, _ := setup(t)

	err := Execute([]string{"containers", "-o", "/out/", "--progress", "/in/Cookies.binarycookies", "/in/App.InFocus"})
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/out/Cookies_output.json", "/out/App_output.json"} {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			t.Fatalf("report %s was not written: %v", path, err)
		}

		if !bytes.Contains(data, []byte(`"report_id"`)) {
			t.Fatalf("incorrect report %s\n%s", path, data)
		}
	}

	if !strings.Contains(out.String(), "/in/App.InFocus: appendlog -> /out/App_output.json (1 records, 0 flagged, 0 failed)") {
		t.Fatalf("missing summary line\n%s", out.String())
	}
}

func TestDecodeFatalFailsCommand(t *testing.T) {
	fs, _, errOut := setup(t)

	err := Execute([]string{"containers", "decode", "-o", "/out", "/in/notes.txt", "/in/App.InFocus"})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 containers failed") {
		t.Fatalf("expected a failure, got %v", err)
	}

	if !strings.Contains(errOut.String(), "[ERROR] /in/notes.txt: BadMagic") {
		t.Fatalf("missing error log\n%s", errOut.String())
	}

	if ok, _ := afero.Exists(fs, "/out/notes_output.json"); ok {
		t.Fatal("a report was written for a broken container")
	}

	if ok, _ := afero.Exists(fs, "/out/App_output.json"); !ok {
		t.Fatal("the healthy container was not reported")
	}
}

func TestDecodeConfigFile(t *testing.T) {
	fs, out, _ := setup(t)

	_ = afero.WriteFile(fs, "/etc/containers.yaml", []byte("output:\n  format: text\n"), 0o644)

	err := Execute([]string{"containers", "decode", "-c", "/etc/containers.yaml", "/in/App.InFocus"})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "state=1 crc=ok com.apple.Safari") {
		t.Fatalf("configuration file was not applied\n%s", out.String())
	}
}

func TestDecodeBadConfig(t *testing.T) {
	setup(t)

	if err := Execute([]string{"containers", "decode", "-w", "1000", "/in/App.InFocus"}); err == nil {
		t.Fatal("expected an error for an out of bounds worker count")
	}
}

func TestDecodeLogFile(t *testing.T) {
	fs, _, _ := setup(t)

	err := Execute([]string{"containers", "decode", "--log-file", "/var/log/containers.log", "/in/App.InFocus"})
	if err != nil {
		t.Fatal(err)
	}

	data, err := afero.ReadFile(fs, "/var/log/containers.log")
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Contains(data, []byte("[INFO] /in/App.InFocus: appendlog")) {
		t.Fatalf("incorrect log file\n%s", data)
	}
}

func TestDetect(t *testing.T) {
	_, out, errOut := setup(t)

	err := Execute([]string{"containers", "detect", "/in/Cookies.binarycookies", "/in/App.InFocus", "/in/notes.txt"})
	if err == nil {
		t.Fatal("expected an error for the unknown file")
	}

	want := "/in/Cookies.binarycookies: cookiejar\n/in/App.InFocus: appendlog\n"
	if out.String() != want {
		t.Fatalf("incorrect output\n- %q\n+ %q", want, out.String())
	}

	if !strings.Contains(errOut.String(), "containers: detect[detect_file]: ") {
		t.Fatalf("missing runtime error\n%s", errOut.String())
	}
}

func TestVersion(t *testing.T) {
	_, out, _ := setup(t)

	if err := Execute([]string{"containers", "version"}); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(out.String(), "containers dev-source (") {
		t.Fatalf("incorrect version output %q", out.String())
	}
}

func TestHelp(t *testing.T) {
	_, out, _ := setup(t)

	if err := Execute([]string{"containers", "help"}); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "Use \"containers help <command>\"") {
		t.Fatalf("incorrect help output\n%s", out.String())
	}

	out.Reset()

	if err := Execute([]string{"containers", "help", "decode"}); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "Supported Flags:") || !strings.Contains(out.String(), "--log-file") {
		t.Fatalf("incorrect command help\n%s", out.String())
	}
}

func TestUsageError(t *testing.T) {
	_, out, errOut := setup(t)

	if err := Execute([]string{"containers", "decode", "--bogus", "/in/App.InFocus"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}

	if !strings.HasPrefix(errOut.String(), "containers: ") || !strings.Contains(errOut.String(), "bogus") {
		t.Fatalf("missing usage error\n%s", errOut.String())
	}

	if !strings.Contains(out.String(), "Supported Flags:") {
		t.Fatalf("command help was not printed\n%s", out.String())
	}
}
