package machine

// syscall dispatches a SYSCALL instruction: id is an index into the
// Module's Imports table (§4.3/§4.7), each of which names a (module,
// symbol) pair resolved at load time to either a reserved core.*
// implementation or an embedder-registered foreign host function.
func (vm *VM) syscall(id uint32) {
	if int(id) >= len(vm.m.Imports) {
		panic(trap(ExitUnknownHostImport, "unknown import id %d", id))
	}
	imp := vm.m.Imports[id]
	key := imp.Module + "." + imp.Symbol

	fn, ok := vm.th.HostImports[key]
	if !ok {
		panic(trap(ExitUnknownHostImport, "no host implementation registered for %s", key))
	}

	argc := 0
	for _, sig := range vm.m.Sigs {
		if sig.Name == imp.Sig {
			argc = len(sig.Params)
			break
		}
	}
	args := make([]Slot, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	results, err := fn(vm, args)
	if err != nil {
		panic(trap(ExitUnknownHostImport, "%s: %v", key, err))
	}
	for _, r := range results {
		vm.push(r)
	}
}
