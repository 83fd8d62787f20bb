package libhook

var nativeArch = arch386
