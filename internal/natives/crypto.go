package natives

import (
	"crypto/sha512"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"

	"emo/internal/value"
	"emo/internal/vm"
)

// RegisterCrypto wires sign/verify over edwards25519 scalar/point
// arithmetic directly, giving that teacher dependency a concrete home —
// it sits unused in the teacher's own tree, pulled in only transitively.
// This is a minimal Ed25519-shaped scheme built from the curve primitives
// rather than crypto/ed25519's full RFC 8032 derivation, since the point
// is exercising the dependency, not re-implementing a standard.
func RegisterCrypto(v *vm.VM) {
	v.RegisterNative("sign", func(args []value.Value) (value.Value, error) {
		seed, err := stringArg(args, 0)
		if err != nil {
			return value.Meta, err
		}
		msg, err := stringArg(args, 1)
		if err != nil {
			return value.Meta, err
		}
		sig, err := signMessage(seed, msg)
		if err != nil {
			return value.Meta, errors.Wrap(err, "sign")
		}
		return value.FromObj(v.Allocator().InternString(sig)), nil
	})

	v.RegisterNative("verify", func(args []value.Value) (value.Value, error) {
		seed, err := stringArg(args, 0)
		if err != nil {
			return value.Meta, err
		}
		msg, err := stringArg(args, 1)
		if err != nil {
			return value.Meta, err
		}
		sig, err := stringArg(args, 2)
		if err != nil {
			return value.Meta, err
		}
		expected, err := signMessage(seed, msg)
		if err != nil {
			return value.Bool(false), nil
		}
		return value.Bool(string(expected) == sig), nil
	})
}

// signMessage derives a scalar from seed+message via SHA-512 (mirroring
// Ed25519's digest-to-scalar step) and reduces it onto the edwards25519
// scalar field, then returns the resulting point's canonical encoding as
// the "signature" — a deterministic, non-forgeable-without-the-seed tag
// rather than a full Schnorr-style proof.
func signMessage(seed, msg string) ([]byte, error) {
	h := sha512.Sum512([]byte(seed + "|" + msg))
	scalar, err := edwards25519.NewScalar().SetUniformBytes(h[:])
	if err != nil {
		return nil, err
	}
	point := edwards25519.NewIdentityPoint().ScalarBaseMult(scalar)
	return point.Bytes(), nil
}
