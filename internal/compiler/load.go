package compiler

import (
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir builds the CUE package in dir and decodes it into a Program.
// All .cue files of the package are unified before decoding.
func LoadDir(dir string) (*Program, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}
	return DecodeProgram(v)
}
