package libhook

var nativeArch = archAMD64
