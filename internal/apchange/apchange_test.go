package apchange

import (
	"testing"

	"sierracasm/internal/felt"
	"sierracasm/internal/sierra"
)

func TestCoreLibfuncApChange(t *testing.T) {
	r := sierra.NewCoreRegistry()
	feltTy, err := r.GetConcreteType(sierra.FeltTypeID, nil)
	if err != nil {
		t.Fatal(err)
	}
	sizes := sizeFunc(func(id sierra.ConcreteTypeID) (int16, bool) {
		info, ok := r.TypeInfo(id)
		return info.Size, ok
	})
	tests := []struct {
		id   sierra.GenericLibfuncID
		args []sierra.GenericArg
		want []ApChange
	}{
		{sierra.StorageReadLibfuncID, nil, []ApChange{KnownChange(2)}},
		{sierra.StorageWriteLibfuncID, nil, []ApChange{KnownChange(2), KnownChange(2)}},
		{sierra.CallContractLibfuncID, nil, []ApChange{KnownChange(2), KnownChange(2)}},
		{sierra.StorageAddressConstLibfuncID, []sierra.GenericArg{sierra.ValueArg(felt.FromInt64(3))}, []ApChange{KnownChange(0)}},
		{sierra.ContractAddressConstLibfuncID, []sierra.GenericArg{sierra.ValueArg(felt.FromInt64(3))}, []ApChange{KnownChange(0)}},
		{sierra.StoreTempLibfuncID, []sierra.GenericArg{sierra.TypeArg(feltTy)}, []ApChange{KnownChange(1)}},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			lib, err := r.SpecializeLibfunc(tt.id, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if got := CoreLibfuncApChange(lib, sizes); !Equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnknownLibfuncIsUnknownPerBranch(t *testing.T) {
	lib := &sierra.ConcreteLibfunc{Signature: sierra.LibfuncSignature{Branches: make([]sierra.BranchSignature, 3)}}
	got := CoreLibfuncApChange(lib, sizeFunc(func(sierra.ConcreteTypeID) (int16, bool) { return 0, false }))
	if len(got) != 3 || got[0].Kind != Unknown {
		t.Fatalf("got %v", got)
	}
}

type sizeFunc func(sierra.ConcreteTypeID) (int16, bool)

func (f sizeFunc) TypeSize(id sierra.ConcreteTypeID) (int16, bool) { return f(id) }
