package internal

// Shutdown logs the shutdown reason and signals ShutdownChan, releasing
// whoever blocks on it.
func Shutdown(message string) {
	zlog.Sugar().Infof("Shutdown initiated: %s", message)
	close(ShutdownChan)
}
