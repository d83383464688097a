package protocol

import (
	"slices"
	"testing"
)

func TestRunRequestReconstructsArguments(t *testing.T) {
	tests := []struct {
		name string
		args []Argument
		want []string
	}{
		{
			name: "in order",
			args: []Argument{
				{ID: CommandLineArgument, Index: 0, Value: "a"},
				{ID: CommandLineArgument, Index: 1, Value: "b"},
				{ID: CommandLineArgument, Index: 2, Value: "c"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "out of wire order",
			args: []Argument{
				{ID: CommandLineArgument, Index: 2, Value: "c"},
				{ID: CommandLineArgument, Index: 0, Value: "a"},
				{ID: CommandLineArgument, Index: 1, Value: "b"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "sparse indices",
			args: []Argument{
				{ID: CommandLineArgument, Index: 0, Value: "x"},
				{ID: CommandLineArgument, Index: 2, Value: "z"},
			},
			want: []string{"x", "", "z"},
		},
		{
			name: "interleaved with other ids",
			args: []Argument{
				{ID: CurrentDirectory, Value: "/src"},
				{ID: CommandLineArgument, Index: 1, Value: "b"},
				{ID: KeepAlive, Value: "60"},
				{ID: CommandLineArgument, Index: 0, Value: "a"},
			},
			want: []string{"a", "b"},
		},
		{
			name: "no command-line arguments",
			args: []Argument{{ID: CurrentDirectory, Value: "/src"}},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &BuildRequest{Language: CSharp, Arguments: tt.args}
			got := req.RunRequest().Arguments
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Arguments = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunRequestDirectories(t *testing.T) {
	req := &BuildRequest{
		Language: VisualBasic,
		Arguments: []Argument{
			{ID: CurrentDirectory, Value: "/src"},
			{ID: TempDirectory, Value: "/tmp"},
			{ID: LibEnvVariable, Value: "/lib"},
		},
	}

	run := req.RunRequest()
	if run.Language != VisualBasic {
		t.Fatalf("Language = %v, want %v", run.Language, VisualBasic)
	}
	if run.WorkingDirectory != "/src" || run.TempDirectory != "/tmp" || run.LibDirectory != "/lib" {
		t.Fatalf("directories = %q %q %q", run.WorkingDirectory, run.TempDirectory, run.LibDirectory)
	}
}

func TestCompileRequestRoundTrip(t *testing.T) {
	run := RunRequest{
		Language:         CSharp,
		WorkingDirectory: "/src",
		TempDirectory:    "/tmp",
		Arguments:        []string{"a", "b", "c"},
	}

	req := NewCompileRequest(CSharp, run, "hash", "")
	got := req.RunRequest()

	if !slices.Equal(got.Arguments, run.Arguments) {
		t.Fatalf("Arguments = %q, want %q", got.Arguments, run.Arguments)
	}
	if got.WorkingDirectory != run.WorkingDirectory || got.TempDirectory != run.TempDirectory {
		t.Fatalf("directories = %q %q", got.WorkingDirectory, got.TempDirectory)
	}
	if req.IsShutdown() {
		t.Fatal("compile request reported as shutdown")
	}
}

func TestIsShutdown(t *testing.T) {
	if !NewShutdownRequest("hash").IsShutdown() {
		t.Fatal("shutdown request not recognised")
	}

	req := &BuildRequest{Arguments: []Argument{{ID: Shutdown}, {ID: CurrentDirectory, Value: "/"}}}
	if req.IsShutdown() {
		t.Fatal("request with extra arguments treated as shutdown")
	}

	if (&BuildRequest{}).IsShutdown() {
		t.Fatal("empty request treated as shutdown")
	}
}

func TestKeepAlive(t *testing.T) {
	tests := []struct {
		name    string
		args    []Argument
		want    int
		present bool
		wantErr bool
	}{
		{name: "absent"},
		{name: "seconds", args: []Argument{{ID: KeepAlive, Value: "300"}}, want: 300, present: true},
		{name: "zero", args: []Argument{{ID: KeepAlive, Value: "0"}}, want: 0, present: true},
		{name: "first wins", args: []Argument{{ID: KeepAlive, Value: "30"}, {ID: KeepAlive, Value: "90"}}, want: 30, present: true},
		{name: "not a number", args: []Argument{{ID: KeepAlive, Value: "soon"}}, present: true, wantErr: true},
		{name: "negative", args: []Argument{{ID: KeepAlive, Value: "-5"}}, present: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &BuildRequest{Arguments: tt.args}
			got, present, err := req.KeepAlive()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if present != tt.present {
				t.Fatalf("present = %v, want %v", present, tt.present)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("KeepAlive = %d, want %d", got, tt.want)
			}
		})
	}
}
