package stage

// Health reports whether a kind handler can reach its upstream.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a Health record explaining why the handler is unusable.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}
