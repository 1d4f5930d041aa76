package history_test

import (
	"testing"

	"bcvm/internal/bytecode"
	"bcvm/internal/history"
)

func TestFingerprintIsDeterministicAndCodeSensitive(t *testing.T) {
	a := bytecode.NewFunction("f")
	a.WriteOp(bytecode.OpPushNum)
	a.WriteVarUint(0)
	a.WriteOp(bytecode.OpReturn)

	b := bytecode.NewFunction("f")
	b.WriteOp(bytecode.OpPushNum)
	b.WriteVarUint(0)
	b.WriteOp(bytecode.OpReturn)

	if history.Fingerprint(a) != history.Fingerprint(b) {
		t.Errorf("identical bytecode produced different fingerprints")
	}

	c := bytecode.NewFunction("f")
	c.WriteOp(bytecode.OpPushNum)
	c.WriteVarUint(1)
	c.WriteOp(bytecode.OpReturn)

	if history.Fingerprint(a) == history.Fingerprint(c) {
		t.Errorf("different bytecode bodies produced the same fingerprint")
	}
}
