package metrics

// NoopCollector is a no-op implementation of the Collector interface.
// All methods are empty stubs that do nothing.
type NoopCollector struct{}

func (n *NoopCollector) ConnectionOpened(proto string)  {}
func (n *NoopCollector) ConnectionClosed(proto string)  {}
func (n *NoopCollector) CommandProcessed(proto, cmd string) {}
func (n *NoopCollector) AuthAttempt(proto string, success bool) {}
func (n *NoopCollector) MessageRetrieved(sizeBytes int64)       {}
func (n *NoopCollector) MessageDeleted()                        {}
func (n *NoopCollector) MessageListed()                         {}
func (n *NoopCollector) MessageDelivered(recipients int, sizeBytes int64) {}
func (n *NoopCollector) DeliveryFailed()                        {}
