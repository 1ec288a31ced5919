package device

// Factory builds a device out of its `-rapt key=value,...` (or config file) spec.
type Factory interface {
  FromSpec(spec DeviceSpec) (Device, error)
}

// FactoryDocs is optionally implemented by factories to document their spec keys in -help.
type FactoryDocs interface {
  Help() string
}
