package loader

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func zapAssembly(name string) zap.Field { return zap.String("assembly", name) }
func zapID(id int) zap.Field            { return zap.Int("template_id", id) }
func zapTypeID(id uint32) zap.Field     { return zap.Uint32("type_id", id) }
func zapFunctionID(id uint32) zap.Field { return zap.Uint32("function_id", id) }

// zapRequestID tags a log line with a fresh correlation id. GetType and
// GetFunction attach it to their request line; the log lines emitted for
// the nested instantiations a request triggers do not carry it.
func zapRequestID() zap.Field { return zap.String("request_id", uuid.NewString()) }
